package staging

import (
	"encoding/xml"
	"strings"

	"oepma/internal/join"
)

// Record is the staged intermediate form of one key.
type Record struct {
	XMLName     xml.Name   `xml:"import"`
	ProcessName string     `xml:"processname"`
	Key         string     `xml:"key"`
	Place       string     `xml:"place"`
	Country     string     `xml:"country"`
	Date        string     `xml:"date"`
	Title       string     `xml:"title"`
	Shelfmark   string     `xml:"shelfmark"`
	DocumentRef string     `xml:"pdf"`
	Notes       string     `xml:"notes"`
	FileName    string     `xml:"filename"`
	FilePath    string     `xml:"filepath"`
	Priorities  []Priority `xml:"priorities>priority"`
	Persons     []Person   `xml:"persons>person"`
}

// Priority is a staged priority claim.
type Priority struct {
	Country string `xml:"country"`
	Date    string `xml:"date"`
}

// Person is a staged applicant name.
type Person struct {
	FirstName string `xml:"firstname"`
	LastName  string `xml:"lastname"`
}

// RecordFromGroup builds the staged form of a joined key.
func RecordFromGroup(processName string, group join.Group) Record {
	rec := Record{
		ProcessName: processName,
		Key:         group.Key,
		Place:       group.Place,
		Country:     group.Country,
		Date:        group.GrantDate,
		Title:       group.Title,
		Shelfmark:   group.Shelfmark,
		DocumentRef: group.DocumentRef,
		Notes:       group.Notes,
		FileName:    group.AssetName,
		FilePath:    group.AssetPath,
	}
	for _, p := range group.Priorities {
		rec.Priorities = append(rec.Priorities, Priority{Country: p.Country, Date: p.Date})
	}
	for _, p := range group.Persons {
		rec.Persons = append(rec.Persons, Person{FirstName: p.FirstName, LastName: p.LastName})
	}
	return rec
}

// HasMedia reports whether staging found an asset file for the record.
func (r Record) HasMedia() bool {
	return strings.TrimSpace(r.FilePath) != ""
}

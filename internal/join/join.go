package join

import (
	"strings"
	"unicode"

	"oepma/internal/sources"
)

// Priority is one priority claim attached to an entry.
type Priority struct {
	Country string
	Date    string
}

// Entry is one applicant name (or a bare key) with the master scalars and
// priorities replicated onto it.
type Entry struct {
	Key         string
	FullName    string
	Place       string
	Country     string
	GrantDate   string
	Title       string
	Shelfmark   string
	DocumentRef string
	Notes       string
	Priorities  []Priority
	// AssetName is set for every non-blank shelfmark, AssetPath only when the file was found.
	AssetName string
	AssetPath string
}

func (e *Entry) applyMaster(row sources.MasterRow) {
	e.GrantDate = row.GrantDate
	e.Title = row.Title
	e.Shelfmark = row.Shelfmark
	e.DocumentRef = row.DocumentRef
	e.Notes = row.Notes
}

// Index is an insertion-ordered multimap from key to entries. It is built for
// one run and not safe for concurrent mutation.
type Index struct {
	order   []string
	entries map[string][]*Entry
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string][]*Entry)}
}

// Merge joins the three sources. Each applicant row adds its own entry, master
// rows overwrite scalars on every entry of their key and priority rows append
// to every entry of their key. Unseen keys get a bare entry so no input key is dropped.
func Merge(applicants []sources.ApplicantRow, masters []sources.MasterRow, priorities []sources.PriorityRow) *Index {
	idx := NewIndex()
	for _, row := range applicants {
		idx.add(&Entry{
			Key:      row.Key,
			FullName: row.FullName,
			Place:    row.Place,
			Country:  row.Country,
		})
	}
	for _, row := range masters {
		idx.ApplyMaster(row)
	}
	for _, row := range priorities {
		idx.ApplyPriority(row)
	}
	return idx
}

// ApplyMaster copies the row's scalars onto every entry under its key, or
// inserts a bare entry carrying them.
func (idx *Index) ApplyMaster(row sources.MasterRow) {
	existing := idx.entries[row.Key]
	if len(existing) == 0 {
		entry := &Entry{Key: row.Key}
		entry.applyMaster(row)
		idx.add(entry)
		return
	}
	for _, entry := range existing {
		entry.applyMaster(row)
	}
}

// ApplyPriority appends the claim to every entry under its key, or inserts a
// bare entry holding only that claim.
func (idx *Index) ApplyPriority(row sources.PriorityRow) {
	claim := Priority{Country: row.Country, Date: row.Date}
	existing := idx.entries[row.Key]
	if len(existing) == 0 {
		idx.add(&Entry{Key: row.Key, Priorities: []Priority{claim}})
		return
	}
	for _, entry := range existing {
		entry.Priorities = append(entry.Priorities, claim)
	}
}

func (idx *Index) add(entry *Entry) {
	if _, ok := idx.entries[entry.Key]; !ok {
		idx.order = append(idx.order, entry.Key)
	}
	idx.entries[entry.Key] = append(idx.entries[entry.Key], entry)
}

// Keys returns the distinct keys in first-insertion order.
func (idx *Index) Keys() []string {
	return append([]string(nil), idx.order...)
}

// Entries returns the entries under key in insertion order.
func (idx *Index) Entries(key string) []*Entry {
	return idx.entries[key]
}

// Len is the number of distinct keys.
func (idx *Index) Len() int {
	return len(idx.order)
}

// EntryCount is the total number of entries across all keys.
func (idx *Index) EntryCount() int {
	n := 0
	for _, list := range idx.entries {
		n += len(list)
	}
	return n
}

// Person is a full name split for the repository's person metadata.
type Person struct {
	FirstName string
	LastName  string
}

// SplitName splits a full name at the first whitespace: the leading token is
// the last name and the trimmed remainder the first name.
func SplitName(fullName string) Person {
	name := strings.TrimSpace(fullName)
	idx := strings.IndexFunc(name, unicode.IsSpace)
	if idx < 0 {
		return Person{LastName: name}
	}
	return Person{
		LastName:  name[:idx],
		FirstName: strings.TrimSpace(name[idx:]),
	}
}

// Group is the staging unit for one key: the replicated scalars and
// priorities of the key plus one person per named entry.
type Group struct {
	Entry
	Persons []Person
}

// Group collapses the entries under key. ok is false for an unknown key.
func (idx *Index) Group(key string) (Group, bool) {
	entries := idx.entries[key]
	if len(entries) == 0 {
		return Group{}, false
	}
	first := *entries[0]
	first.Priorities = append([]Priority(nil), first.Priorities...)
	group := Group{Entry: first}
	for _, entry := range entries {
		if strings.TrimSpace(entry.FullName) == "" {
			continue
		}
		group.Persons = append(group.Persons, SplitName(entry.FullName))
	}
	return group, true
}

package join_test

import (
	"reflect"
	"testing"

	"oepma/internal/assets"
	"oepma/internal/join"
	"oepma/internal/sources"
)

func TestMergeEndToEndSingleKey(t *testing.T) {
	idx := join.Merge(
		[]sources.ApplicantRow{{Key: "A-1", FullName: "Jane Doe"}},
		[]sources.MasterRow{{Key: "A-1", Shelfmark: "12/345", Title: "T"}},
		[]sources.PriorityRow{{Key: "A-1", Country: "AT", Date: "2020-01-01"}},
	)
	if idx.Len() != 1 || idx.EntryCount() != 1 {
		t.Fatalf("expected exactly one entry, got keys=%d entries=%d", idx.Len(), idx.EntryCount())
	}
	group, ok := idx.Group("A-1")
	if !ok {
		t.Fatal("expected group for A-1")
	}
	if group.Title != "T" || group.Shelfmark != "12/345" {
		t.Fatalf("unexpected scalars: %+v", group.Entry)
	}
	wantPersons := []join.Person{{FirstName: "Doe", LastName: "Jane"}}
	if !reflect.DeepEqual(group.Persons, wantPersons) {
		t.Fatalf("unexpected persons: %+v", group.Persons)
	}
	wantPrio := []join.Priority{{Country: "AT", Date: "2020-01-01"}}
	if !reflect.DeepEqual(group.Priorities, wantPrio) {
		t.Fatalf("unexpected priorities: %+v", group.Priorities)
	}
}

func TestMergeReplicatesAcrossApplicants(t *testing.T) {
	idx := join.Merge(
		[]sources.ApplicantRow{
			{Key: "K", FullName: "Ada Lovelace", Place: "London"},
			{Key: "K", FullName: "Charles Babbage", Place: "Teignmouth"},
		},
		[]sources.MasterRow{{Key: "K", Title: "Engine"}},
		[]sources.PriorityRow{
			{Key: "K", Country: "GB", Date: "1843"},
			{Key: "K", Country: "FR", Date: "1844"},
		},
	)
	entries := idx.Entries("K")
	if len(entries) != 2 {
		t.Fatalf("expected one entry per applicant, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.Title != "Engine" {
			t.Fatalf("expected master scalars on every entry, got %+v", entry)
		}
		if len(entry.Priorities) != 2 || entry.Priorities[0].Country != "GB" || entry.Priorities[1].Country != "FR" {
			t.Fatalf("expected priorities appended in order, got %+v", entry.Priorities)
		}
	}
	if entries[0].Place != "London" || entries[1].Place != "Teignmouth" {
		t.Fatal("applicant attributes must stay per entry")
	}
	group, _ := idx.Group("K")
	if len(group.Persons) != 2 || group.Persons[1].LastName != "Charles" {
		t.Fatalf("unexpected persons: %+v", group.Persons)
	}
}

func TestMergeLastMasterWins(t *testing.T) {
	idx := join.Merge(
		[]sources.ApplicantRow{{Key: "K", FullName: "X"}},
		[]sources.MasterRow{
			{Key: "K", Title: "first", Notes: "n1", Shelfmark: "1"},
			{Key: "K", Title: "second", Shelfmark: "2"},
		},
		nil,
	)
	entry := idx.Entries("K")[0]
	if entry.Title != "second" || entry.Shelfmark != "2" || entry.Notes != "" {
		t.Fatalf("expected second master row to overwrite all scalars, got %+v", entry)
	}
}

func TestMergeCreatesBareEntriesForUnseenKeys(t *testing.T) {
	idx := join.Merge(
		[]sources.ApplicantRow{{Key: "A", FullName: "Name"}},
		[]sources.MasterRow{{Key: "M", Title: "only master"}},
		[]sources.PriorityRow{{Key: "P", Country: "DE"}, {Key: "M", Country: "CH"}},
	)
	if got := idx.Keys(); !reflect.DeepEqual(got, []string{"A", "M", "P"}) {
		t.Fatalf("expected insertion-ordered keys, got %v", got)
	}
	master := idx.Entries("M")
	if len(master) != 1 || master[0].FullName != "" || master[0].Title != "only master" || len(master[0].Priorities) != 1 {
		t.Fatalf("unexpected bare master entry: %+v", master)
	}
	prio := idx.Entries("P")
	if len(prio) != 1 || prio[0].Priorities[0].Country != "DE" {
		t.Fatalf("unexpected bare priority entry: %+v", prio)
	}
	group, _ := idx.Group("M")
	if len(group.Persons) != 0 {
		t.Fatalf("bare entry must not produce persons, got %+v", group.Persons)
	}
}

func TestMergeNoSilentDrops(t *testing.T) {
	applicants := []sources.ApplicantRow{{Key: "1"}, {Key: "2"}, {Key: "2"}}
	masters := []sources.MasterRow{{Key: "3"}, {Key: "1"}}
	priorities := []sources.PriorityRow{{Key: "4"}, {Key: "3"}}
	idx := join.Merge(applicants, masters, priorities)

	inputs := map[string]bool{}
	for _, r := range applicants {
		inputs[r.Key] = true
	}
	for _, r := range masters {
		inputs[r.Key] = true
	}
	for _, r := range priorities {
		inputs[r.Key] = true
	}
	outputs := map[string]bool{}
	for _, key := range idx.Keys() {
		for _, entry := range idx.Entries(key) {
			if entry.Key != key {
				t.Fatalf("entry key %q filed under %q", entry.Key, key)
			}
			outputs[key] = true
		}
	}
	if !reflect.DeepEqual(inputs, outputs) {
		t.Fatalf("keys differ: inputs %v outputs %v", inputs, outputs)
	}
	if idx.EntryCount() != 5 {
		t.Fatalf("expected 5 entries (3 applicants + 2 bare), got %d", idx.EntryCount())
	}
}

func TestGroupDoesNotAliasEntryPriorities(t *testing.T) {
	idx := join.Merge(nil, nil, []sources.PriorityRow{{Key: "K", Country: "AT"}})
	group, _ := idx.Group("K")
	group.Priorities[0].Country = "changed"
	if idx.Entries("K")[0].Priorities[0].Country != "AT" {
		t.Fatal("group mutation leaked into the index")
	}
	if _, ok := idx.Group("missing"); ok {
		t.Fatal("expected unknown key to report !ok")
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in   string
		want join.Person
	}{
		{in: "Jane Doe", want: join.Person{FirstName: "Doe", LastName: "Jane"}},
		{in: "Siemens", want: join.Person{LastName: "Siemens"}},
		{in: "  van der Berg  Jan ", want: join.Person{FirstName: "der Berg  Jan", LastName: "van"}},
		{in: "Müller\tHans", want: join.Person{FirstName: "Hans", LastName: "Müller"}},
		{in: "", want: join.Person{}},
	}
	for _, tc := range tests {
		if got := join.SplitName(tc.in); got != tc.want {
			t.Errorf("SplitName(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

type fakeResolver map[string]string

func (f fakeResolver) Resolve(shelfmark string) (assets.Match, bool) {
	if shelfmark == "" {
		return assets.Match{}, false
	}
	m := assets.Match{Name: assets.FileName(shelfmark), Path: f[shelfmark]}
	return m, m.Path != ""
}

func TestResolveAssets(t *testing.T) {
	idx := join.Merge(
		[]sources.ApplicantRow{{Key: "A", FullName: "x"}, {Key: "A", FullName: "y"}},
		[]sources.MasterRow{{Key: "A", Shelfmark: "12/345"}, {Key: "B", Shelfmark: "9"}, {Key: "C"}},
		nil,
	)
	found := idx.ResolveAssets(fakeResolver{"12/345": "/scans/12345.pdf"})
	if found != 2 {
		t.Fatalf("expected both A entries resolved, got %d", found)
	}
	for _, entry := range idx.Entries("A") {
		if entry.AssetName != "12345.pdf" || entry.AssetPath != "/scans/12345.pdf" {
			t.Fatalf("unexpected asset on A: %+v", entry)
		}
	}
	b := idx.Entries("B")[0]
	if b.AssetName != "9.pdf" || b.AssetPath != "" {
		t.Fatalf("expected name without path for B, got %+v", b)
	}
	c := idx.Entries("C")[0]
	if c.AssetName != "" || c.AssetPath != "" {
		t.Fatalf("expected no asset for blank shelfmark, got %+v", c)
	}
}

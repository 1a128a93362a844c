package sources

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"oepma/internal/logging"
)

// Row element names and their child fields as exported from the patent database.
const (
	ApplicantElement = "Anmelder"
	MasterElement    = "Master"
	PriorityElement  = "Prio"

	fieldKey             = "Schluessel"
	fieldName            = "Name"
	fieldPlace           = "NeuOrt"
	fieldCountry         = "NeuLand"
	fieldGrantDate       = "ErtDat"
	fieldTitle           = "TitelNeu"
	fieldShelfmark       = "AZNeu"
	fieldDocument        = "PDFDoc"
	fieldNotes           = "Bemerkung"
	fieldPriorityDate    = "Prio-Datum"
	fieldPriorityCountry = "Prio-Land"
)

// ApplicantRow is one row of the applicant table.
type ApplicantRow struct {
	Key      string
	FullName string
	Place    string
	Country  string
}

// MasterRow is one row of the master bibliographic table.
type MasterRow struct {
	Key         string
	GrantDate   string
	Title       string
	Shelfmark   string
	DocumentRef string
	Notes       string
}

// PriorityRow is one priority claim.
type PriorityRow struct {
	Key     string
	Date    string
	Country string
}

// Tables bundles the three loaded sources of a batch.
type Tables struct {
	Applicants []ApplicantRow
	Masters    []MasterRow
	Priorities []PriorityRow
}

// Loader reads the three source tables with a shared record cap.
type Loader struct {
	limit  int
	logger *slog.Logger
}

// NewLoader returns a loader. A negative limit disables the record cap.
func NewLoader(limit int, logger *slog.Logger) *Loader {
	return &Loader{limit: limit, logger: logging.NewComponentLogger(logger, "loader")}
}

// LoadAll reads all three tables. The first ParseError aborts the load since
// the join needs every source.
func (l *Loader) LoadAll(applicantsPath, mastersPath, prioritiesPath string) (Tables, error) {
	var tables Tables
	var err error
	if tables.Applicants, err = l.Applicants(applicantsPath); err != nil {
		return Tables{}, err
	}
	if tables.Masters, err = l.Masters(mastersPath); err != nil {
		return Tables{}, err
	}
	if tables.Priorities, err = l.Priorities(prioritiesPath); err != nil {
		return Tables{}, err
	}
	return tables, nil
}

// Applicants loads the applicant table at path.
func (l *Loader) Applicants(path string) ([]ApplicantRow, error) {
	return loadTable(l, path, ApplicantElement, func(f Fields) ApplicantRow {
		return ApplicantRow{
			Key:      f.Get(fieldKey),
			FullName: f.Get(fieldName),
			Place:    f.Get(fieldPlace),
			Country:  f.Get(fieldCountry),
		}
	})
}

// Masters loads the master table at path.
func (l *Loader) Masters(path string) ([]MasterRow, error) {
	return loadTable(l, path, MasterElement, func(f Fields) MasterRow {
		return MasterRow{
			Key:         f.Get(fieldKey),
			GrantDate:   f.Get(fieldGrantDate),
			Title:       f.Get(fieldTitle),
			Shelfmark:   f.Get(fieldShelfmark),
			DocumentRef: f.Get(fieldDocument),
			Notes:       f.Get(fieldNotes),
		}
	})
}

// Priorities loads the priority table at path.
func (l *Loader) Priorities(path string) ([]PriorityRow, error) {
	return loadTable(l, path, PriorityElement, func(f Fields) PriorityRow {
		return PriorityRow{
			Key:     f.Get(fieldKey),
			Date:    f.Get(fieldPriorityDate),
			Country: f.Get(fieldPriorityCountry),
		}
	})
}

func loadTable[T any](l *Loader, path, element string, convert func(Fields) T) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("source table missing: %w", err)}
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	defer file.Close()

	var rows []T
	for fields, err := range Rows(file, element, l.limit) {
		if err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
		rows = append(rows, convert(fields))
		l.logger.Debug("read row",
			logging.String("table", element),
			logging.String(logging.FieldRecordKey, fields.Get(fieldKey)),
			logging.Int("row", len(rows)),
		)
	}
	l.logger.Info("loaded table",
		logging.String("table", element),
		logging.String("path", path),
		logging.Int("rows", len(rows)),
		logging.String(logging.FieldEventType, "table_loaded"),
	)
	return rows, nil
}

package config

const (
	defaultImportDir             = "~/oepma/import"
	defaultLogDir                = "~/.local/share/oepma/logs"
	defaultAPIBind               = "127.0.0.1:7491"
	defaultApplicantsFile        = "Anmelder.xml"
	defaultMastersFile           = "Master.xml"
	defaultPrioritiesFile        = "Prio.xml"
	defaultAssetSubdir           = "Scans"
	defaultMaxRecords            = 10000000
	defaultRecordDelayMillis     = 100
	defaultCompletionDelayMillis = 2000
	defaultSuccessRetentionDays  = 0
	defaultMediaTemplate         = "OEPMA_media"
	defaultNoMediaTemplate       = "OEPMA_nomedia"
	defaultPublicationType       = "Patent"
	defaultCollection            = "OEPMA"
	defaultRepositoryDBPath      = "~/.local/share/oepma/repository.db"
	defaultRepositoryMediaDir    = "~/.local/share/oepma/media"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 60
	defaultLogBufferSize         = 48
	defaultNotifyIntervalMillis  = 500
	defaultNotifyRequestTimeout  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ImportDir: defaultImportDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Sources: Sources{
			Applicants: defaultApplicantsFile,
			Masters:    defaultMastersFile,
			Priorities: defaultPrioritiesFile,
		},
		Import: Import{
			MaxRecords:            defaultMaxRecords,
			RecordDelayMillis:     defaultRecordDelayMillis,
			CompletionDelayMillis: defaultCompletionDelayMillis,
			SuccessRetentionDays:  defaultSuccessRetentionDays,
		},
		Workflow: Workflow{
			MediaTemplate:   defaultMediaTemplate,
			NoMediaTemplate: defaultNoMediaTemplate,
			PublicationType: defaultPublicationType,
			Collection:      defaultCollection,
		},
		Metadata: DefaultMetadata(),
		Repository: Repository{
			DBPath:   defaultRepositoryDBPath,
			MediaDir: defaultRepositoryMediaDir,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunStart:       true,
			RunComplete:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format:               defaultLogFormat,
			Level:                defaultLogLevel,
			RetentionDays:        defaultLogRetentionDays,
			BufferSize:           defaultLogBufferSize,
			NotifyIntervalMillis: defaultNotifyIntervalMillis,
		},
	}
}

// DefaultMetadata returns the stock field mapping for the patent ruleset.
func DefaultMetadata() Metadata {
	return Metadata{
		Key:             "PatentNumber",
		FullName:        "Applicant",
		Place:           "ApplicantPlace",
		Country:         "ApplicantCountry",
		Date:            "DateOfGrant",
		Title:           "TitleDocMain",
		Shelfmark:       "shelfmarksource",
		Document:        "PDFDocument",
		Notes:           "Note",
		Priority:        "Priority",
		PriorityCountry: "PriorityCountry",
		PriorityDate:    "PriorityDate",
		FileName:        "FileName",
		FilePath:        "FilePath",
		Collection:      "singleDigCollection",
		CatalogID:       "CatalogIDDigital",
	}
}

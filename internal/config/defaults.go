package config

const (
	defaultInboxDir        = "~/Documents/receipts/inbox"
	defaultAttachmentsDir  = "~/.local/share/slipstream/attachments"
	defaultDataDir         = "~/.local/share/slipstream"
	defaultLogDir          = "~/.local/share/slipstream/logs"
	defaultQueueCapacity   = 32
	defaultWorkers         = 2
	defaultOCRPoolSize     = 2
	defaultSettleMillis    = 500
	defaultReviewThreshold = 0.7
	defaultEngine          = "tesseract"
	defaultTesseractBinary = "tesseract"
	defaultOCRTimeout      = 120
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InboxDirs:      []string{defaultInboxDir},
			AttachmentsDir: defaultAttachmentsDir,
			DataDir:        defaultDataDir,
			LogDir:         defaultLogDir,
		},
		Pipeline: Pipeline{
			QueueCapacity:   defaultQueueCapacity,
			Workers:         defaultWorkers,
			OCRPoolSize:     defaultOCRPoolSize,
			SettleMillis:    defaultSettleMillis,
			ReviewThreshold: defaultReviewThreshold,
		},
		Recognition: Recognition{
			Engine:          defaultEngine,
			TesseractBinary: defaultTesseractBinary,
			Languages:       []string{"eng"},
			TimeoutSeconds:  defaultOCRTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Completed:      true,
			Duplicates:     false,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

package cli

// Flags holds all command-line flag values
type Flags struct {
	// Global flags
	CfgFile      string
	Source       string
	Target       string
	LogLevel     string
	LogFormat    string
	Speak        bool
	PreferOnline bool
	Engine       string

	// translate flags
	Mode      string
	BatchFile string
	Workers   int

	// serve flags
	Listen string

	// models flags
	Local bool

	// phrasebook flags
	Phrasebook string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		Source:       "en",
		Target:       "es",
		LogLevel:     "info",
		LogFormat:    "console",
		PreferOnline: true,
		Engine:       "localmodel",
		Mode:         "auto",
		Workers:      4,
		Listen:       "127.0.0.1:8088",
	}
}

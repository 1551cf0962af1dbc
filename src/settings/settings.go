package settings

type Arguments struct {
	// The file path to the datafiles
	DataDir string

	// Name of the database file inside DataDir. An empty name selects an
	// ephemeral in-memory store, which is only useful for testing.
	DBFile string

	// Strongly verbose logging
	Verbose bool

	Debug bool // Enable debug mode
}

package engine

const (
	DefaultMaxOutputLines   = 1000
	DefaultMaxCallStackSize = 10000
)

// Config controls sandbox engine behavior.
type Config struct {
	// MaxOutputLines caps console.log lines per run; the next line aborts the run.
	MaxOutputLines int `yaml:"maxOutputLines"`
	// MaxCallStackSize bounds JS recursion depth.
	MaxCallStackSize int `yaml:"maxCallStackSize"`
}

func (c Config) withDefaults() Config {
	if c.MaxOutputLines <= 0 {
		c.MaxOutputLines = DefaultMaxOutputLines
	}
	if c.MaxCallStackSize <= 0 {
		c.MaxCallStackSize = DefaultMaxCallStackSize
	}
	return c
}

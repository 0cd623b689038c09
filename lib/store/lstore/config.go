package lstore

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/rsnDB/lib/guard"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

// --------------------------------------------------------------------------
// Engine configuration struct
// --------------------------------------------------------------------------

// Config configures a local engine.
type Config struct {
	// RecursionLimit bounds the nesting depth of stored values.
	RecursionLimit int `mapstructure:"recursion-limit" validate:"min=1,max=64"`
	// MaxSnapshots bounds the undo history (0 = unbounded).
	MaxSnapshots int `mapstructure:"max-snapshots" validate:"min=0"`
	// Passphrase enables encryption of saved files when not empty.
	Passphrase string `mapstructure:"passphrase"`
	// Compress enables zstd compression of saved files.
	Compress bool `mapstructure:"compress"`
	// CompressionLevel is one of fastest, default, better or best.
	CompressionLevel string `mapstructure:"compression-level" validate:"oneof=fastest default better best"`
	// DataDir is the base directory of every store path.
	DataDir string `mapstructure:"data-dir" validate:"required"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		RecursionLimit:   value.DefaultRecursionLimit,
		MaxSnapshots:     0,
		Compress:         true,
		CompressionLevel: "default",
		DataDir:          ".",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return guard.Struct(c)
}

// String returns a formatted representation. The passphrase is masked.
func (c Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Engine")
	addField("Recursion Limit", fmt.Sprintf("%d", c.RecursionLimit))
	if c.MaxSnapshots == 0 {
		addField("Max Snapshots", "unbounded")
	} else {
		addField("Max Snapshots", fmt.Sprintf("%d", c.MaxSnapshots))
	}

	addSection("Persistence")
	addField("Data Directory", c.DataDir)
	addField("Compression", fmt.Sprintf("%t (%s)", c.Compress, c.CompressionLevel))
	if c.Passphrase != "" {
		addField("Encryption", "enabled (passphrase ****)")
	} else {
		addField("Encryption", "disabled")
	}
	return sb.String()
}

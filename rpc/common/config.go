package common

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/rsnDB/lib/guard"
)

// --------------------------------------------------------------------------
// Dispatcher configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds the parameters of the request dispatcher.
type ServerConfig struct {
	// Serializer used by HandleText ("json" or "gob")
	Serializer string `mapstructure:"serializer" validate:"oneof=json gob"`

	// Base directory for exchange files
	DataDir string `mapstructure:"data-dir" validate:"required"`

	// Limits, capped by the guard constants
	MaxBatchOps   int `mapstructure:"max-batch-ops" validate:"min=1,max=512"`
	MaxAliasDepth int `mapstructure:"max-alias-depth" validate:"min=1,max=64"`
}

// DefaultServerConfig returns the configuration used by the CLI.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Serializer:    "json",
		DataDir:       ".",
		MaxBatchOps:   guard.MaxBatchOps,
		MaxAliasDepth: guard.MaxDepth,
	}
}

// Validate checks the configuration.
func (c *ServerConfig) Validate() error {
	return guard.Struct(c)
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Dispatcher")
	addField("Serializer", c.Serializer)
	addField("Data Directory", c.DataDir)

	addSection("Limits")
	addField("Max Batch Ops", fmt.Sprintf("%d", c.MaxBatchOps))
	addField("Max Alias Depth", fmt.Sprintf("%d", c.MaxAliasDepth))
	addField("Max Command Bytes", fmt.Sprintf("%d", guard.MaxCommandBytes))
	addField("Max Ingest Bytes", fmt.Sprintf("%d", guard.MaxIngestBytes))

	return sb.String()
}

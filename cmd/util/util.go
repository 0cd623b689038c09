package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/guard"
	"github.com/ValentinKolb/rsnDB/lib/logging"
	"github.com/ValentinKolb/rsnDB/lib/store/lstore"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/rpc/common"
	"github.com/ValentinKolb/rsnDB/rpc/server"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// DefaultStore is the store file used when --store is not set
	DefaultStore = "rsndb.db"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// SetupStoreFlags adds the engine flags shared by every command
func SetupStoreFlags(cmd *cobra.Command) {
	defaults := lstore.DefaultConfig()

	key := "config"
	cmd.PersistentFlags().String(key, "", WrapString("Optional config file (yaml, toml, json or any format viper reads)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("Log level (debug, info, warn, error)"))

	key = "store"
	cmd.PersistentFlags().String(key, DefaultStore, WrapString("Store file, relative to the data directory. It is loaded if it exists and saved after every change"))

	key = "data-dir"
	cmd.PersistentFlags().String(key, defaults.DataDir, WrapString("Base directory of the store file and of every import and export path"))

	key = "passphrase"
	cmd.PersistentFlags().String(key, "", WrapString("Passphrase used to encrypt the store file (empty disables encryption)"))

	key = "no-compress"
	cmd.PersistentFlags().Bool(key, !defaults.Compress, WrapString("Disable zstd compression of the store file"))

	key = "compression-level"
	cmd.PersistentFlags().String(key, defaults.CompressionLevel, WrapString("zstd level (fastest, default, better, best)"))

	key = "max-snapshots"
	cmd.PersistentFlags().Int(key, defaults.MaxSnapshots, WrapString("Maximum number of undo snapshots kept in memory (0 = unbounded)"))

	key = "recursion-limit"
	cmd.PersistentFlags().Int(key, defaults.RecursionLimit, WrapString("Maximum nesting depth of stored values (1-64)"))
}

// InitConfig loads .env files, environment variables and the optional
// config file into viper
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("rsndb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	if file := viper.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			logging.GetLogger("cli").Warnf("failed to read config file %s: %v", file, err)
		}
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetStoreConfig reads the engine configuration from viper
func GetStoreConfig() lstore.Config {
	return lstore.Config{
		RecursionLimit:   viper.GetInt("recursion-limit"),
		MaxSnapshots:     viper.GetInt("max-snapshots"),
		Passphrase:       viper.GetString("passphrase"),
		Compress:         !viper.GetBool("no-compress"),
		CompressionLevel: viper.GetString("compression-level"),
		DataDir:          viper.GetString("data-dir"),
	}
}

// StorePath returns the configured store file
func StorePath() string {
	if p := viper.GetString("store"); p != "" {
		return p
	}
	return DefaultStore
}

// Prepare binds the flags of cmd and applies the log level. Commands that
// do not need a loaded store call it instead of OpenSession.
func Prepare(cmd *cobra.Command) error {
	if err := BindCommandFlags(cmd); err != nil {
		return err
	}
	return logging.Init(viper.GetString("log-level"))
}

// --------------------------------------------------------------------------
// Session
// --------------------------------------------------------------------------

// Session is one CLI invocation against the store file: the engine, the
// dispatcher in front of it and the history length seen after loading.
type Session struct {
	Store  *lstore.Store
	Server *server.Server

	path string
	seen int
}

// OpenSession creates the engine, loads the store file if it exists and
// puts a dispatcher in front of it.
func OpenSession(cmd *cobra.Command) (*Session, error) {
	if err := Prepare(cmd); err != nil {
		return nil, err
	}

	cfg := GetStoreConfig()
	st, err := lstore.New(cfg)
	if err != nil {
		return nil, err
	}

	path := StorePath()
	exists, err := st.Exists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := st.Load(path); err != nil {
			return nil, err
		}
	}

	srvConf := common.DefaultServerConfig()
	srvConf.DataDir = cfg.DataDir
	srv, err := server.NewServer(srvConf, st)
	if err != nil {
		return nil, err
	}

	history, err := st.History()
	if err != nil {
		return nil, err
	}
	return &Session{Store: st, Server: srv, path: path, seen: len(history)}, nil
}

// Do runs req through the dispatcher
func (s *Session) Do(req *common.Request) (value.Value, error) {
	resp := s.Server.Handle(req)
	if err := resp.Err(); err != nil {
		return value.Value{}, err
	}
	if resp.Result == nil {
		return value.Null(), nil
	}
	return *resp.Result, nil
}

// Changed reports whether the history grew since the store was opened
func (s *Session) Changed() (bool, error) {
	history, err := s.Store.History()
	if err != nil {
		return false, err
	}
	return len(history) != s.seen, nil
}

// Close saves the store file if the session changed anything and releases
// the engine.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	defer s.Store.Close()

	changed, err := s.Changed()
	if err != nil || !changed {
		return err
	}
	_, err = s.Store.Save(s.path)
	return err
}

// --------------------------------------------------------------------------
// Argument Parsing
// --------------------------------------------------------------------------

// ParseValue reads a JSON literal. Anything that is not valid JSON is taken
// as a plain string, so `kv put name Ann` works without quoting.
func ParseValue(s string) value.Value {
	v, err := value.FromJSON([]byte(s), guard.MaxDepth)
	if err != nil {
		return value.String(s)
	}
	return v
}

// ParseDocument reads a JSON object
func ParseDocument(s string) (value.Value, error) {
	v, err := value.FromJSON([]byte(s), guard.MaxDepth)
	if err != nil {
		return value.Value{}, err
	}
	if v.Tag() != value.TagDocument {
		return value.Value{}, errs.New(errs.InvalidArgument, "expected a JSON object, got %s", v.Tag())
	}
	return v, nil
}

// ParseCondition reads "field op value", e.g. `age >= 30` or
// `name = "Ann Lee"`. An empty string selects every row.
func ParseCondition(s string) (*db.Condition, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	field, rest := cutSpace(s)
	op, literal := cutSpace(rest)
	if field == "" || op == "" || literal == "" {
		return nil, errs.New(errs.InvalidArgument, "expected 'field op value', got %q", s)
	}
	parsed, err := db.ParseOp(op)
	if err != nil {
		return nil, err
	}
	return db.Where(field, parsed, ParseValue(literal)), nil
}

func cutSpace(s string) (head, tail string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// PrintValue prints a result as indented JSON, or "ok" for null
func PrintValue(cmd *cobra.Command, v value.Value) error {
	if v.IsNull() {
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.String())
	return nil
}

// PrintJSON prints any JSON-encodable value indented
func PrintJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

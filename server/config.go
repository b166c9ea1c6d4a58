package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"

	"github.com/dekarrin/plyfin"
	"github.com/dekarrin/plyfin/server/api"
	"github.com/dekarrin/plyfin/server/dao"
	"github.com/dekarrin/plyfin/server/dao/inmem"
	"github.com/dekarrin/plyfin/server/dao/sqlite"
	"github.com/dekarrin/plyfin/server/svc"
)

const (
	MaxSecretSize = 64
	MinSecretSize = 32
)

const (
	// DefaultUnauthDelay is the UnauthDelay of a Config that does not set one.
	DefaultUnauthDelay = time.Second

	// DefaultMaxSourceBytes is the grammar source limit of a Config that does
	// not set one.
	DefaultMaxSourceBytes = 256 << 10

	// DefaultMaxInputBytes is the parse input limit of a Config that does not
	// set one.
	DefaultMaxInputBytes = 1 << 20

	// CacheFilename is the name of the compiled grammar cache that sqlite
	// storage keeps in its data directory unless told otherwise.
	CacheFilename = "compiled.db"
)

// Engine is a kind of persistence that users and grammar records are kept in.
type Engine string

const (
	EngineInMemory Engine = "inmem"
	EngineSQLite   Engine = "sqlite"
)

// Storage says where users and grammar records are kept.
type Storage struct {
	Engine Engine

	// Dir is the data directory of EngineSQLite storage. It is created if it
	// does not exist.
	Dir string
}

// ParseStorage parses a storage string of the form "engine:params", or just
// "engine" if the engine takes no params. "inmem" keeps everything in memory
// and "sqlite:/data" keeps it in SQLite files in /data.
func ParseStorage(s string) (Storage, error) {
	engine, param, _ := strings.Cut(s, ":")
	engine = strings.ToLower(strings.TrimSpace(engine))
	param = strings.TrimSpace(param)

	switch Engine(engine) {
	case EngineInMemory:
		if param != "" {
			return Storage{}, fmt.Errorf("inmem storage takes no params but got %q", param)
		}
		return Storage{Engine: EngineInMemory}, nil
	case EngineSQLite:
		if param == "" {
			return Storage{}, fmt.Errorf("sqlite storage requires path to data directory after ':'")
		}
		return Storage{Engine: EngineSQLite, Dir: param}, nil
	default:
		return Storage{}, fmt.Errorf("storage engine not one of 'sqlite' or 'inmem': %q", engine)
	}
}

// String gives st in the form ParseStorage reads.
func (st Storage) String() string {
	if st.Engine == EngineSQLite {
		return string(st.Engine) + ":" + st.Dir
	}
	return string(st.Engine)
}

// dataFile is the path of the file records are stored in, or "" if they are
// not stored in a file.
func (st Storage) dataFile() string {
	if st.Engine != EngineSQLite {
		return ""
	}
	return filepath.Join(st.Dir, sqlite.DataFilename)
}

func (st Storage) validate() error {
	switch st.Engine {
	case EngineInMemory:
		return nil
	case EngineSQLite:
		if st.Dir == "" {
			return fmt.Errorf("sqlite storage needs a data directory")
		}
		if info, err := os.Stat(st.Dir); err == nil && !info.IsDir() {
			return fmt.Errorf("data directory %s is not a directory", st.Dir)
		}
		return nil
	default:
		return fmt.Errorf("unknown storage engine: %q", st.Engine)
	}
}

func (st Storage) open() (dao.Store, error) {
	switch st.Engine {
	case EngineInMemory:
		return inmem.NewDatastore(), nil
	case EngineSQLite:
		if err := os.MkdirAll(st.Dir, 0770); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		store, err := sqlite.NewDatastore(st.Dir)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage engine: %q", st.Engine)
	}
}

// Grammars holds how the server compiles grammars and how much text it takes.
type Grammars struct {
	// Defaults are the compile options for any a client leaves out. If nil,
	// plyfin.DefaultOptions is used.
	Defaults *plyfin.Options

	// MaxSourceBytes is the largest grammar source accepted. 0 means
	// DefaultMaxSourceBytes and a negative number means no limit.
	MaxSourceBytes int

	// MaxInputBytes is the largest text accepted for parsing or lexing. 0
	// means DefaultMaxInputBytes and a negative number means no limit.
	MaxInputBytes int

	// Preload compiles every stored grammar when the server starts.
	Preload bool
}

func (g Grammars) limits() svc.Limits {
	lim := svc.Limits{MaxSourceBytes: g.MaxSourceBytes, MaxInputBytes: g.MaxInputBytes}
	if lim.MaxSourceBytes < 0 {
		lim.MaxSourceBytes = 0
	}
	if lim.MaxInputBytes < 0 {
		lim.MaxInputBytes = 0
	}
	return lim
}

// Config is a configuration for a server. It contains all parameters that can
// be used to configure the operation of a Server.
type Config struct {

	// TokenSecret is the secret used for signing tokens. If not provided, a
	// default key is used.
	TokenSecret []byte

	// Storage is where users and grammar records are kept. Defaults to
	// in-memory storage.
	Storage Storage

	// CachePath is the SQLite file that compiled grammars are cached in. It
	// defaults to CacheFilename in the data directory of sqlite storage. With
	// in-memory storage it stays empty, and compiled grammars are cached in
	// memory only.
	CachePath string

	// AdminUsername is the name of the admin user ensured to exist at
	// startup. Defaults to "admin".
	AdminUsername string

	// AdminPassword is the password the admin user is given at startup. If
	// empty, an existing admin keeps their password and a new one is given a
	// generated password that is logged once.
	AdminPassword string

	// UnauthDelay is waited before sending a response that says the client
	// was unauthorized or unauthenticated, to slow down naive clients guessing
	// at credentials. Defaults to DefaultUnauthDelay. A negative value turns
	// the delay off.
	UnauthDelay time.Duration

	// PasswordHashCost is the bcrypt cost of stored passwords. Defaults to
	// svc.DefaultHashCost.
	PasswordHashCost int

	Grammars Grammars
}

// FillDefaults returns a new Config identitical to cfg but with unset values
// set to their defaults.
func (cfg Config) FillDefaults() Config {
	newCFG := cfg

	if newCFG.TokenSecret == nil {
		newCFG.TokenSecret = []byte("DEFAULT_TOKEN_SECRET-DO_NOT_USE_IN_PROD!")
	}
	if newCFG.Storage.Engine == "" {
		newCFG.Storage = Storage{Engine: EngineInMemory}
	}
	if newCFG.CachePath == "" && newCFG.Storage.Engine == EngineSQLite && newCFG.Storage.Dir != "" {
		newCFG.CachePath = filepath.Join(newCFG.Storage.Dir, CacheFilename)
	}
	if newCFG.AdminUsername == "" {
		newCFG.AdminUsername = "admin"
	}
	if newCFG.UnauthDelay == 0 {
		newCFG.UnauthDelay = DefaultUnauthDelay
	}
	if newCFG.PasswordHashCost == 0 {
		newCFG.PasswordHashCost = svc.DefaultHashCost
	}
	if newCFG.Grammars.Defaults == nil {
		opts := plyfin.DefaultOptions()
		newCFG.Grammars.Defaults = &opts
	}
	if newCFG.Grammars.MaxSourceBytes == 0 {
		newCFG.Grammars.MaxSourceBytes = DefaultMaxSourceBytes
	}
	if newCFG.Grammars.MaxInputBytes == 0 {
		newCFG.Grammars.MaxInputBytes = DefaultMaxInputBytes
	}

	return newCFG
}

// Validate returns an error if the Config has invalid field values set. Empty
// and unset values are considered invalid; if defaults are intended to be used,
// call Validate on the return value of FillDefaults.
func (cfg Config) Validate() error {
	if len(cfg.TokenSecret) < MinSecretSize {
		return fmt.Errorf("token secret: must be at least %d bytes, but is %d", MinSecretSize, len(cfg.TokenSecret))
	}
	if len(cfg.TokenSecret) > MaxSecretSize {
		return fmt.Errorf("token secret: must be no more than %d bytes, but is %d", MaxSecretSize, len(cfg.TokenSecret))
	}
	if err := cfg.Storage.validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := cfg.validateCachePath(); err != nil {
		return fmt.Errorf("cache path: %w", err)
	}
	if cfg.AdminUsername == "" {
		return fmt.Errorf("admin username: must not be empty")
	}
	if cfg.PasswordHashCost < bcrypt.MinCost || cfg.PasswordHashCost > bcrypt.MaxCost {
		return fmt.Errorf("password hash cost: must be between %d and %d, but is %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.PasswordHashCost)
	}
	if cfg.Grammars.Defaults == nil {
		return fmt.Errorf("grammars: default options not set")
	}
	if cfg.Grammars.MaxSourceBytes == 0 || cfg.Grammars.MaxSourceBytes > api.MaxBodySize {
		return fmt.Errorf("grammars: source limit must be between 1 and %d bytes, or negative for none", api.MaxBodySize)
	}
	if cfg.Grammars.MaxInputBytes == 0 || cfg.Grammars.MaxInputBytes > api.MaxBodySize {
		return fmt.Errorf("grammars: input limit must be between 1 and %d bytes, or negative for none", api.MaxBodySize)
	}

	return nil
}

func (cfg Config) validateCachePath() error {
	if cfg.CachePath == "" {
		return nil
	}

	if dataFile := cfg.Storage.dataFile(); dataFile != "" && filepath.Clean(cfg.CachePath) == filepath.Clean(dataFile) {
		return fmt.Errorf("%s is the storage database file", cfg.CachePath)
	}

	info, err := os.Stat(cfg.CachePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", cfg.CachePath)
	}
	return nil
}

// unauthDelay gives UnauthDelay with a negative value read as no delay.
func (cfg Config) unauthDelay() time.Duration {
	if cfg.UnauthDelay < 0 {
		return 0
	}
	return cfg.UnauthDelay
}

// File is the layout of a TOML server config file. Every key is optional.
//
//	listen = "localhost:8080"
//	secret = "a long random string"
//	storage = "sqlite:/var/lib/plyfin"
//	cache = "/var/cache/plyfin/compiled.db"
//	unauth_delay = "1s"
//	hash_cost = 12
//
//	[admin]
//	username = "admin"
//	password = "hunter2"
//
//	[grammars]
//	auto_filter_tokens = true
//	keep_empty_trees = true
//	max_source_bytes = 262144
//	max_input_bytes = 1048576
//	preload = true
type File struct {
	Listen      string `toml:"listen"`
	Secret      string `toml:"secret"`
	Storage     string `toml:"storage"`
	Cache       string `toml:"cache"`
	UnauthDelay string `toml:"unauth_delay"`
	HashCost    int    `toml:"hash_cost"`

	Admin struct {
		Username string `toml:"username"`
		Password string `toml:"password"`
	} `toml:"admin"`

	Grammars struct {
		AutoFilterTokens *bool `toml:"auto_filter_tokens"`
		KeepEmptyTrees   *bool `toml:"keep_empty_trees"`
		MaxSourceBytes   int   `toml:"max_source_bytes"`
		MaxInputBytes    int   `toml:"max_input_bytes"`
		Preload          bool  `toml:"preload"`
	} `toml:"grammars"`
}

// LoadFile reads the TOML config file at path. Unknown keys are an error.
func LoadFile(path string) (File, error) {
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return File{}, err
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return File{}, fmt.Errorf("%s: unknown key %q", path, undec[0].String())
	}
	return f, nil
}

// Config gives the Config that f describes. The secret is used as-is and the
// listen address is left to the caller.
func (f File) Config() (Config, error) {
	cfg := Config{
		CachePath:        f.Cache,
		AdminUsername:    f.Admin.Username,
		AdminPassword:    f.Admin.Password,
		PasswordHashCost: f.HashCost,
	}
	if f.Secret != "" {
		cfg.TokenSecret = []byte(f.Secret)
	}

	if f.Storage != "" {
		st, err := ParseStorage(f.Storage)
		if err != nil {
			return Config{}, fmt.Errorf("storage: %w", err)
		}
		cfg.Storage = st
	}

	if f.UnauthDelay != "" {
		d, err := time.ParseDuration(f.UnauthDelay)
		if err != nil {
			return Config{}, fmt.Errorf("unauth_delay: %w", err)
		}
		cfg.UnauthDelay = d
	}

	opts := plyfin.DefaultOptions()
	if f.Grammars.AutoFilterTokens != nil {
		opts.AutoFilterTokens = *f.Grammars.AutoFilterTokens
	}
	if f.Grammars.KeepEmptyTrees != nil {
		opts.KeepEmptyTrees = *f.Grammars.KeepEmptyTrees
	}
	cfg.Grammars = Grammars{
		Defaults:       &opts,
		MaxSourceBytes: f.Grammars.MaxSourceBytes,
		MaxInputBytes:  f.Grammars.MaxInputBytes,
		Preload:        f.Grammars.Preload,
	}

	return cfg, nil
}

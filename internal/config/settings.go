package config

import (
	"fmt"
	"runtime"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/spf13/viper"
)

// Viper keys for every setting the engine and its hosts consume.
const (
	KeyConfidenceThreshold = "classifier.confidence_threshold"
	KeyUnknownThreshold    = "classifier.unknown_threshold"
	KeyK                   = "classifier.k"
	KeyKeywordBoost        = "classifier.keyword_boost"
	KeyRandomSeed          = "classifier.random_seed"
	KeyBatchWorkers        = "classifier.batch_workers"
	KeyTaxonomyPath        = "data.taxonomy_path"
	KeyCorpusPaths         = "data.corpus_paths"
	KeyDatabasePath        = "database.path"
	KeyServerAddress       = "server.address"
	KeyServerTLS           = "server.tls"
	KeyServerCertDir       = "server.cert_dir"
	KeyCorrectionBuffer    = "corrections.buffer_size"
	KeyCorrectionDrop      = "corrections.drop_on_full"
)

// Default values.
const (
	DefaultConfidenceThreshold = 0.5
	DefaultUnknownThreshold    = 0.2
	DefaultK                   = 5
	DefaultKeywordBoost        = 0.1
	DefaultRandomSeed          = 42
	DefaultDatabasePath        = "$HOME/.local/share/kwisatz/kwisatz.db"
	DefaultServerAddress       = "127.0.0.1:8000"
	DefaultCertDir             = "$HOME/.local/share/kwisatz/certs"
	DefaultCorrectionBuffer    = 256
)

// ServerSettings configures the HTTP host.
type ServerSettings struct {
	Address string `json:"address"`
	CertDir string `json:"cert_dir,omitempty"`
	TLS     bool   `json:"tls"`
}

// CorrectionSettings configures the asynchronous correction sink.
type CorrectionSettings struct {
	BufferSize int  `json:"buffer_size"`
	DropOnFull bool `json:"drop_on_full"`
}

// Settings is the validated configuration handed to the engine. A zero
// Settings is not valid; start from Defaults or Load.
type Settings struct {
	TaxonomyPath        string             `json:"taxonomy_path,omitempty"`
	DatabasePath        string             `json:"database_path"`
	Server              ServerSettings     `json:"server"`
	CorpusPaths         []string           `json:"corpus_paths"`
	Corrections         CorrectionSettings `json:"corrections"`
	ConfidenceThreshold float64            `json:"confidence_threshold"`
	UnknownThreshold    float64            `json:"unknown_threshold"`
	KeywordBoost        float64            `json:"keyword_boost"`
	RandomSeed          int64              `json:"random_seed"`
	K                   int                `json:"k"`
	BatchWorkers        int                `json:"batch_workers"`
}

// Defaults returns Settings populated with the default values.
func Defaults() Settings {
	return Settings{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		UnknownThreshold:    DefaultUnknownThreshold,
		K:                   DefaultK,
		KeywordBoost:        DefaultKeywordBoost,
		RandomSeed:          DefaultRandomSeed,
		BatchWorkers:        runtime.GOMAXPROCS(0),
		DatabasePath:        DefaultDatabasePath,
		Server:              ServerSettings{Address: DefaultServerAddress, CertDir: DefaultCertDir},
		Corrections:         CorrectionSettings{BufferSize: DefaultCorrectionBuffer},
	}
}

// SetDefaults registers the default values on v so that config files and
// environment variables only need to name what they change.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyConfidenceThreshold, d.ConfidenceThreshold)
	v.SetDefault(KeyUnknownThreshold, d.UnknownThreshold)
	v.SetDefault(KeyK, d.K)
	v.SetDefault(KeyKeywordBoost, d.KeywordBoost)
	v.SetDefault(KeyRandomSeed, d.RandomSeed)
	v.SetDefault(KeyBatchWorkers, d.BatchWorkers)
	v.SetDefault(KeyDatabasePath, d.DatabasePath)
	v.SetDefault(KeyServerAddress, d.Server.Address)
	v.SetDefault(KeyServerTLS, d.Server.TLS)
	v.SetDefault(KeyServerCertDir, d.Server.CertDir)
	v.SetDefault(KeyCorrectionBuffer, d.Corrections.BufferSize)
	v.SetDefault(KeyCorrectionDrop, d.Corrections.DropOnFull)
}

// Load reads Settings from v, expands paths and validates the result.
func Load(v *viper.Viper) (Settings, error) {
	SetDefaults(v)

	s := Settings{
		ConfidenceThreshold: v.GetFloat64(KeyConfidenceThreshold),
		UnknownThreshold:    v.GetFloat64(KeyUnknownThreshold),
		K:                   v.GetInt(KeyK),
		KeywordBoost:        v.GetFloat64(KeyKeywordBoost),
		RandomSeed:          v.GetInt64(KeyRandomSeed),
		BatchWorkers:        v.GetInt(KeyBatchWorkers),
		TaxonomyPath:        ExpandPath(v.GetString(KeyTaxonomyPath)),
		DatabasePath:        ExpandPath(v.GetString(KeyDatabasePath)),
		Server: ServerSettings{
			Address: v.GetString(KeyServerAddress),
			TLS:     v.GetBool(KeyServerTLS),
			CertDir: ExpandPath(v.GetString(KeyServerCertDir)),
		},
		Corrections: CorrectionSettings{
			BufferSize: v.GetInt(KeyCorrectionBuffer),
			DropOnFull: v.GetBool(KeyCorrectionDrop),
		},
	}
	for _, p := range v.GetStringSlice(KeyCorpusPaths) {
		if p != "" {
			s.CorpusPaths = append(s.CorpusPaths, ExpandPath(p))
		}
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the threshold ordering and the numeric bounds.
func (s Settings) Validate() error {
	if s.UnknownThreshold <= 0 || s.UnknownThreshold >= s.ConfidenceThreshold || s.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: require 0 < unknown_threshold (%g) < confidence_threshold (%g) <= 1",
			common.ErrInvalidConfig, s.UnknownThreshold, s.ConfidenceThreshold)
	}
	if s.K <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", common.ErrInvalidConfig, s.K)
	}
	if s.KeywordBoost < 0 || s.KeywordBoost > 1 {
		return fmt.Errorf("%w: keyword_boost must be within [0, 1], got %g", common.ErrInvalidConfig, s.KeywordBoost)
	}
	if s.BatchWorkers <= 0 {
		return fmt.Errorf("%w: batch_workers must be positive, got %d", common.ErrInvalidConfig, s.BatchWorkers)
	}
	if s.Corrections.BufferSize < 0 {
		return fmt.Errorf("%w: corrections.buffer_size must not be negative", common.ErrInvalidConfig)
	}
	return nil
}

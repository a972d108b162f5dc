package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

type Config struct {
	Engine     EngineConfig
	Classifier ClassifierConfig
	Database   DatabaseConfig
	Web        WebConfig
	Profile    InstallationProfile
	Profiles   ProfilesConfig
}

type EngineConfig struct {
	URL       string  // face embedding server URL, defaults to http://localhost:8000
	Threshold float64 // max cosine distance for a same-person verdict
}

type ClassifierConfig struct {
	Provider    string // "openai", "gemini" or "" (classification disabled)
	OpenAIToken string
	GeminiKey   string
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MariaDBDSN   string // alternate MariaDB DSN; used when URL is empty
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	SessionSecret string
}

type ProfilesConfig struct {
	InstallationProfiles map[string]InstallationProfile `yaml:"installation_profiles"`
}

// InstallationProfile selects which feature set a kiosk deployment runs:
// whether registration classifies attributes, whether responses carry roles,
// and which profile fields the registration form collects.
type InstallationProfile struct {
	ClassifyAttributes bool     `yaml:"classify_attributes"`
	Roles              bool     `yaml:"roles"`
	Fields             []string `yaml:"fields"`
}

// Installation returns the active installation profile.
func (c *Config) Installation() InstallationProfile {
	return c.Profile
}

// HasField reports whether the installation profile collects the given field.
func (p *InstallationProfile) HasField(name string) bool {
	for _, f := range p.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() (*Config, error) {
	var profiles ProfilesConfig
	if err := yaml.Unmarshal(profilesYAML, &profiles); err != nil {
		// Embedded file, so this only happens when the file itself is broken.
		panic("failed to unmarshal embedded profiles.yaml: " + err.Error())
	}

	profileName := os.Getenv("KIOSK_PROFILE")
	if profileName == "" {
		profileName = "hotel"
	}
	profile, ok := profiles.InstallationProfiles[profileName]
	if !ok {
		return nil, fmt.Errorf("unknown installation profile %q", profileName)
	}

	engineURL := os.Getenv("FACE_ENGINE_URL")
	if engineURL == "" {
		engineURL = "http://localhost:8000"
	}

	return &Config{
		Engine: EngineConfig{
			URL:       engineURL,
			Threshold: envFloat("FACE_MATCH_THRESHOLD", 0.35),
		},
		Classifier: ClassifierConfig{
			Provider:    os.Getenv("CLASSIFIER_PROVIDER"),
			OpenAIToken: os.Getenv("OPENAI_TOKEN"),
			GeminiKey:   os.Getenv("GEMINI_API_KEY"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MariaDBDSN:   os.Getenv("MARIADB_DSN"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			SessionSecret: os.Getenv("WEB_SESSION_SECRET"),
		},
		Profile:  profile,
		Profiles: profiles,
	}, nil
}

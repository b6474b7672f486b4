package environment

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
)

// Production defines the prod environment
const Production = "prod"

// Staging defines the staging environment
const Staging = "staging"

// Dev defines the dev environment
const Dev = "dev"

// Environment holds all configuration values of the application
type Environment struct {
	Environment     string `mapstructure:"APP_ENV"`
	Cors            string `mapstructure:"CORS"`
	Secret          string `mapstructure:"SECRET"`
	Port            string `mapstructure:"PORT"`
	Database        string `mapstructure:"DATABASE"`
	DatabaseURL     string `mapstructure:"DATABASE_URL"`
	Redis           string `mapstructure:"REDIS"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	Firebase        string `mapstructure:"FIREBASE"`
	GCPProjectID    string `mapstructure:"GCP_PROJECT_ID"`
	Sendinblue      string `mapstructure:"SENDINBLUE"`
	OpenAIKey       string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel     string `mapstructure:"OPENAI_MODEL"`
	BaseURL         string `mapstructure:"BASE_URL"`
	FrontendBaseURL string `mapstructure:"FRONTEND_BASE_URL"`
}

// keys lists every variable that may override the .env file
var keys = []string{
	"APP_ENV", "CORS", "SECRET", "PORT", "DATABASE", "DATABASE_URL", "REDIS", "REDIS_PASSWORD",
	"FIREBASE", "GCP_PROJECT_ID", "SENDINBLUE", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	"BASE_URL", "FRONTEND_BASE_URL",
}

// Global is the configuration loaded by Initialize
var Global Environment

// Initialize loads the .env file if there is one and lets process variables override it
func Initialize() {
	env, err := Load(".env")
	if err != nil {
		panic(err)
	}

	Global = *env
}

// Load reads the given dotenv file, merges the process environment on top and decodes the result
func Load(filename string) (*Environment, error) {
	data, err := godotenv.Read(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		data = map[string]string{}
	}

	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			data[key] = value
		}
	}

	env := Environment{
		Environment: Dev,
		Port:        "80",
		Database:    "todo",
	}

	err = mapstructure.Decode(data, &env)
	if err != nil {
		return nil, err
	}

	return &env, nil
}

// IsProduction reports whether the production environment is configured
func (e *Environment) IsProduction() bool {
	return e.Environment == Production
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const usage = `Usage:
  -b, --bind           address:port to run the server on (default: 0.0.0.0:3001)
  -c, --config         Path to a configuration file (default: config.toml)
  -d, --database       Path to SQLite database file (default: ./kb.db)
  -u, --uploads        Directory for contributed documents (default: ./uploads)

Environment Variables:
  KB_BIND              Same as --bind
  KB_DATABASE_PATH     Same as --database
  KB_UPLOADS_DIR       Same as --uploads
  KB_DEBUG             Set to "true" to enable debug mode
  KB_PRODUCTION        Set to "true" to enable production mode (secure cookies)
  KB_SESSION_SECRET    Secret used to sign session cookies
  KB_ADMIN_EMAILS      Comma-separated list of reviewer email addresses`

// Default config
func defaultConfig() Config {
	return Config{
		Bind:               "0.0.0.0:3001",
		DatabasePath:       "./kb.db",
		UploadsDir:         "./uploads",
		DocumentsDir:       "./documents",
		AppURL:             "http://localhost:3001",
		MaxUploadSize:      10 << 20,
		MaxDocumentSize:    20 << 20,
		AnonSearchLimit:    3,
		ClamscanPath:       "clamscan",
		ScanTimeoutSeconds: 30,
	}
}

func GenerateConfig() Config {
	var bindOpt string
	var configFile string
	var configFileSet bool
	var databasePathOpt string
	var debugOpt bool
	var uploadsDirOpt string

	flag.StringVar(&bindOpt, "b", "", "address:port to run the server on")
	flag.StringVar(&bindOpt, "bind", "", "address:port to run the server on")
	flag.StringVar(&configFile, "c", "", "Path to the configuration file")
	flag.StringVar(&configFile, "config", "", "Path to the configuration file")
	flag.StringVar(&databasePathOpt, "d", "", "Path to SQLite database file")
	flag.StringVar(&databasePathOpt, "database", "", "Path to SQLite database file")
	flag.BoolVar(&debugOpt, "debug", false, "enable debug mode")
	flag.StringVar(&uploadsDirOpt, "u", "", "Directory for contributed documents")
	flag.StringVar(&uploadsDirOpt, "uploads", "", "Directory for contributed documents")

	flag.Usage = func() {
		fmt.Println(usage)
	}

	flag.Parse()

	// Check if a config file was specified
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" || f.Name == "c" {
			configFileSet = true
		}
	})

	if configFile == "" {
		configFile = "config.toml"
	}

	// Check if the config file exists
	var config Config
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if configFileSet {
			log.Fatalf("Config file %v specified but not found.\n", configFile)
		}
		fmt.Printf("Config file %v not found. Using defaults.\n", configFile)
		config = defaultConfig()
	} else if err != nil {
		log.Fatalf("Error accessing config file %v: %v\n", configFile, err)
	} else {
		// Load the config file
		fmt.Printf("Loading config from %v\n", configFile)
		config = loadConfig(configFile)
	}

	applyEnvOverrides(&config)

	// Override the config values with the command-line flags (highest priority)
	options := map[*string]*string{
		&bindOpt:         &config.Bind,
		&databasePathOpt: &config.DatabasePath,
		&uploadsDirOpt:   &config.UploadsDir,
	}

	for option, configField := range options {
		if *option != "" {
			*configField = *option
		}
	}

	if debugOpt {
		config.Debug = true
	}

	return config
}

func applyEnvOverrides(config *Config) {
	if envBind := os.Getenv("KB_BIND"); envBind != "" {
		config.Bind = envBind
	}
	if envDB := os.Getenv("KB_DATABASE_PATH"); envDB != "" {
		config.DatabasePath = envDB
	}
	if envUploads := os.Getenv("KB_UPLOADS_DIR"); envUploads != "" {
		config.UploadsDir = envUploads
	}
	if envDebug := os.Getenv("KB_DEBUG"); envDebug == "true" || envDebug == "1" {
		config.Debug = true
	}
	if envProd := os.Getenv("KB_PRODUCTION"); envProd == "true" || envProd == "1" {
		config.Production = true
	}
	if envSecret := os.Getenv("KB_SESSION_SECRET"); envSecret != "" {
		config.SessionSecret = envSecret
	}
	if envAdmins := os.Getenv("KB_ADMIN_EMAILS"); envAdmins != "" {
		config.AdminEmails = nil
		for _, a := range strings.Split(envAdmins, ",") {
			if a = strings.TrimSpace(a); a != "" {
				config.AdminEmails = append(config.AdminEmails, a)
			}
		}
	}
	if envSkip := os.Getenv("KB_SKIP_ANTIVIRUS"); envSkip == "true" || envSkip == "1" {
		config.SkipAntivirus = true
	}
}

func loadConfig(configFile string) Config {
	config := defaultConfig()

	if _, err := toml.DecodeFile(configFile, &config); err != nil {
		log.Fatal(err)
	}

	return config
}

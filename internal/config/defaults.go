package config

// DefaultMaxFileSize is the largest syllabus accepted when max_file_size is unset.
const DefaultMaxFileSize = 100 << 20

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Output.JSONDir == "" {
		cfg.Output.JSONDir = "./cursos_json"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/silabo/data/db/courses.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/silabo/data/indices/bleve"
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.MaxFileSize == 0 {
		cfg.Pipeline.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Input.Extensions == nil {
		cfg.Input.Extensions = []string{".pdf"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Input.Directories) > 0 && cfg.Input.Recursive == nil {
		t := true
		cfg.Input.Recursive = &t
	}
}

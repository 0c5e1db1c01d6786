package langserver

import (
	"github.com/errata-ai/vale-ls/session"
)

// FileSettings is the content of .vale-ls.toml:
//
//	install_vale = true
//	config_path = "/path/to/.vale.ini"
//	filter = '.Level == "error"'
//	sync_on_startup = false
type FileSettings struct {
	InstallVale   bool   `toml:"install_vale"`
	ConfigPath    string `toml:"config_path"`
	Filter        string `toml:"filter"`
	SyncOnStartup bool   `toml:"sync_on_startup"`
}

// Apply copies every non-zero field into s under the key the client would
// use in initializationOptions. Zero fields leave the client's value alone.
func (f *FileSettings) Apply(s *session.Settings) {
	if f == nil {
		return
	}
	if f.InstallVale {
		s.Set(session.KeyInstallVale, true)
	}
	if f.ConfigPath != "" {
		s.Set(session.KeyConfigPath, f.ConfigPath)
	}
	if f.Filter != "" {
		s.Set(session.KeyFilter, f.Filter)
	}
	if f.SyncOnStartup {
		s.Set(session.KeySyncOnStartup, true)
	}
}

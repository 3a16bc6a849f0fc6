// Package config manages nestctl's preferences file.
//
// The file is YAML and lives in the platform's configuration directory:
//   - Linux: $XDG_CONFIG_HOME/nestctl/config.yaml or $HOME/.config/nestctl/config.yaml
//   - macOS: $HOME/.config/nestctl/config.yaml
//   - Windows: %LOCALAPPDATA%\nestctl\config.yaml
//
// # Security
//
// The account password and the session access token are NEVER written to the
// file. The password is taken from a flag, the NEST_PASSWORD environment
// variable or an interactive prompt each time it is needed.
//
// # Usage Example
//
//	prefs, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	prefs.Username = "me@example.com"
//	prefs.SetDeviceNickname("09AA01AB12345678", "Hallway")
//	if err := prefs.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// Saves are atomic: the file is written next to its destination and renamed
// into place.
package config

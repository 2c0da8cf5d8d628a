//go:build windows

package config

// windowsEnv maps the POSIX names used in shared configuration files to
// their Windows equivalents.
var windowsEnv = map[string]string{
	"HOSTNAME": "COMPUTERNAME",
	"HOME":     "USERPROFILE",
	"TMPDIR":   "TEMP",
}

func mapEnvKey(key string) string {
	if k, ok := windowsEnv[key]; ok {
		return k
	}
	return key
}

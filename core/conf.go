package core

import (
	flags "github.com/jessevdk/go-flags"
)

type Conf struct {
	DevMode            bool   `long:"dev-mode" description:"run in dev mode" env:"QCAL_DEV_MODE"`
	DisableStdoutLog   bool   `long:"disable-stdout-log" description:"do not log in standard output" env:"QCAL_DISABLE_STDOUT_LOG"`
	EnableFileLog      bool   `long:"enable-file-log" description:"enable log in file" env:"QCAL_ENABLE_FILE_LOG"`
	LogDir             string `long:"log-dir" description:"rotating log file dir" default:"./shares/logs" env:"QCAL_LOG_DIR"`
	LogLevel           string `long:"log-level" description:"log level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" env:"QCAL_LOG_LEVEL"`
	LogRotationMaxDays int    `long:"log-rotation-max-days" description:"max days of log rotation" default:"7" env:"QCAL_LOG_ROTATION_MAX_DAYS"`
	SettingPath        string `long:"setting-path" description:"setting file path" default:"./setting/setting.toml" env:"QCAL_SETTING_PATH"`
	DefaultShots       int    `long:"default-shots" description:"default number of shots per program" default:"1024" env:"QCAL_DEFAULT_SHOTS"`
	MaxShots           int    `long:"max-shots" description:"max number of shots per program" default:"100000" env:"QCAL_MAX_SHOTS"`
	UseMockBackend     bool   `long:"use-mock-backend" description:"use deterministic mock backend for tests" env:"QCAL_USE_MOCK_BACKEND"`
}

// NewConf returns a Conf populated with the tag defaults, for embedding code
// that does not go through flag parsing.
func NewConf() (*Conf, error) {
	c := &Conf{}
	parser := flags.NewParser(c, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs([]string{}); err != nil {
		return nil, err
	}
	return c, nil
}

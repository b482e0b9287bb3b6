package core

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/oqtopus-team/calibration-engine/common"
	"go.uber.org/zap"
)

var globalSetting *Setting

type Setting struct {
	ComponentSetting map[string]interface{} `toml:"com,omitempty"`
}

// ChannelSetting carries the channel to qubits mapping of the target device.
// Multi-qubit control channels cannot be derived from the channel name and
// must be configured here.
type ChannelSetting struct {
	Map map[string][]int `toml:"map"`
}

func NewChannelSetting() ChannelSetting {
	return ChannelSetting{
		Map: make(map[string][]int),
	}
}

func ResetSetting() {
	globalSetting = &Setting{
		ComponentSetting: make(map[string]interface{}),
	}
}

func RegisterSetting(settingName string, settingVal interface{}) {
	globalSetting.ComponentSetting[settingName] = settingVal
}

func ParseSettingFromPath(settingsPath string) error {
	tomlString, err := common.ReadSettingsFile(settingsPath)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to read setting file/reason:%s", err))
		return err
	}
	return globalSetting.parseSetting(tomlString)
}

func GetGlobalSetting() *Setting {
	return globalSetting
}

func GetComponentSetting(name string) (interface{}, bool) {
	if globalSetting == nil {
		zap.L().Error("Setting is not initialized")
		return nil, false
	}
	val, ok := globalSetting.ComponentSetting[name]
	return val, ok
}

func (s *Setting) parseSetting(tomlString string) error {
	_, err := toml.Decode(tomlString, s)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to parse setting/reason:%s", err))
		return err
	}
	zap.L().Debug(fmt.Sprintf("Setting is %v", s.ComponentSetting))
	return nil
}

// ParseChannelSetting decodes a channel map from a TOML fragment, e.g.
//
//	[map]
//	u0 = [0, 1]
//	u1 = [1, 2]
func ParseChannelSetting(tomlString string) (ChannelSetting, error) {
	cs := NewChannelSetting()
	if _, err := toml.Decode(tomlString, &cs); err != nil {
		zap.L().Error(fmt.Sprintf("failed to parse channel setting/reason:%s", err))
		return cs, err
	}
	return cs, nil
}

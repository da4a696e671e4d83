package schema

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// LoadFile reads a schema definition (YAML, JSON or TOML, by extension).
func LoadFile(path string) (*Definition, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Definition, error) {
	var def Definition
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		StartValueHook(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&def, hook); err != nil {
		return nil, fmt.Errorf("failed to parse schema definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema definition: %w", err)
	}
	def.ApplyPrefix()
	return &def, nil
}

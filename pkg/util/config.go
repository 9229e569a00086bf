package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lintang-b-s/laneconnectivity/pkg"
	"github.com/spf13/viper"
)

func ReadConfig(path string) error {
	viper.SetConfigName("config")
	viper.AddConfigPath(path)

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return nil
}

// Config holds the tunables of road graph construction.
type Config struct {
	MinExtraLaneLength float64 `mapstructure:"MIN_EXTRA_LANE_LENGTH" validate:"gt=0"`
	DefaultLaneCount   int     `mapstructure:"DEFAULT_LANE_COUNT" validate:"gte=1"`
}

func DefaultConfig() Config {
	return Config{
		MinExtraLaneLength: pkg.MIN_EXTRA_LANE_LENGTH,
		DefaultLaneCount:   pkg.DEFAULT_LANE_COUNT,
	}
}

// LoadConfig reads the graph config from viper, falling back to the package defaults.
func LoadConfig() (Config, error) {
	viper.SetDefault("MIN_EXTRA_LANE_LENGTH", pkg.MIN_EXTRA_LANE_LENGTH)
	viper.SetDefault("DEFAULT_LANE_COUNT", pkg.DEFAULT_LANE_COUNT)

	cfg := Config{
		MinExtraLaneLength: viper.GetFloat64("MIN_EXTRA_LANE_LENGTH"),
		DefaultLaneCount:   viper.GetInt("DEFAULT_LANE_COUNT"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	validate := validator.New()
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return WrapErrorf(err, ErrInvalidArgument, "invalid config")
	}

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Translate(trans))
	}
	return NewErrorf(ErrInvalidArgument, "invalid config: %s", strings.Join(msgs, "; "))
}

package config

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

type (
	PersonaConfig struct {
		Name            string                  `yaml:"name"`
		System          string                  `yaml:"system"`
		Bio             []string                `yaml:"bio"`
		Lore            []string                `yaml:"lore"`
		Availability    string                  `yaml:"availability"`
		MessageExamples []PersonaMessageExample `yaml:"messageExamples"`
		Model           string                  `yaml:"model"`
		VoiceID         string                  `yaml:"voiceId"`
	}

	PersonaMessageExample struct {
		Messages []PersonaMessage `yaml:"messages"`
	}

	PersonaMessage struct {
		Name string `yaml:"name"`
		Text string `yaml:"text"`
	}
)

func LoadPersonaFromFile(file string) (persona PersonaConfig, err error) {
	var yamlBytes []byte
	if yamlBytes, err = os.ReadFile(file); err != nil {
		err = errors.Wrapf(err, "failed to read file %s", file)
		return
	}

	if err = yaml.Unmarshal(yamlBytes, &persona); err != nil {
		err = errors.Wrapf(err, "failed to unmarshal file %s", file)
		return
	}

	return
}

package cmds

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/kendrekaran/AI-Chatbots/pkg/chat"
	"github.com/kendrekaran/AI-Chatbots/pkg/conversation"
	"github.com/kendrekaran/AI-Chatbots/pkg/persistence"
	"github.com/kendrekaran/AI-Chatbots/pkg/session"
	"github.com/kendrekaran/AI-Chatbots/pkg/settings"
)

// buildStore opens the durable session store: settings from the optional
// settings file, overridden by flags/env, session state restored from the
// storage directory.
func buildStore() (*conversation.Store, error) {
	st := settings.NewSettings()

	if settingsFile := viper.GetString("settings"); settingsFile != "" {
		f, err := os.Open(settingsFile)
		if err != nil {
			return nil, errors.Wrapf(err, "could not open settings file %s", settingsFile)
		}
		defer func() {
			_ = f.Close()
		}()

		st, err = settings.NewSettingsFromYAML(f)
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse settings file %s", settingsFile)
		}
	}

	backend, err := persistence.NewFileStore(viper.GetString("storage-dir"))
	if err != nil {
		return nil, err
	}

	store := conversation.NewStore(backend, conversation.WithSettings(st))

	// explicit flags and environment win over persisted settings
	merged := store.Settings()
	merged.UpdateFromViper(viper.GetViper())
	if err := store.UpdateSettings(merged); err != nil {
		return nil, err
	}

	return store, nil
}

func buildController() (*session.Controller, error) {
	store, err := buildStore()
	if err != nil {
		return nil, err
	}

	client := chat.NewOpenAIClient(store.Settings().Client)
	return session.NewController(store, client), nil
}

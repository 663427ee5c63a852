package config

import (
	"fmt"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"os"
	"path/filepath"
)

const paramFilename = "param.yaml"
const stateFilename = "state.yaml"
const envFilename = ".env"

const (
	TransitApiKeyEnv = "BUSBOARD_TRANSIT_API_KEY"
	RemoteApiKeyEnv  = "BUSBOARD_REMOTE_API_KEY"
)

type ServerConfig struct {
	ConfigDir      string
	DebugMode      bool
	SimulationMode bool
	FastMode       bool

	*ServerParam
	*ServerState
}

func NewServerConfig(configDir string, debugMode bool, simulationMode bool, fastMode bool) *ServerConfig {
	serverConfig, err := LoadServerConfig(configDir, debugMode, simulationMode, fastMode)
	if err != nil {
		logrus.Fatalf("Unable to load configuration: %v\n", err)
	}
	return serverConfig
}

func LoadServerConfig(configDir string, debugMode bool, simulationMode bool, fastMode bool) (*ServerConfig, error) {
	serverConfig := &ServerConfig{
		ConfigDir:      configDir,
		DebugMode:      debugMode,
		SimulationMode: simulationMode,
		FastMode:       fastMode,
	}

	// Check Configuration folder
	_, err := os.Stat(configDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("unable to access config folder %s: %w", configDir, err)
		}
		logrus.Printf("Creation of config folder: %s", configDir)
		if err = os.MkdirAll(configDir, 0770); err != nil {
			return nil, fmt.Errorf("unable to create config folder: %w", err)
		}
	}

	// Secrets
	err = godotenv.Load(serverConfig.GetCompleteEnvFilename())
	if err != nil && !os.IsNotExist(err) {
		logrus.Warnf("Unable to read %s: %v", serverConfig.GetCompleteEnvFilename(), err)
	}

	// Open param file
	serverConfig.ServerParam = &ServerParam{}
	rawConfig, err := os.ReadFile(serverConfig.GetCompleteParamFilename())
	if err == nil {
		// Interpret param file on top of the defaults
		if err = yaml.Unmarshal(ParamDefaultFile, serverConfig.ServerParam); err != nil {
			return nil, fmt.Errorf("unable to interpret default param file: %w", err)
		}
		if err = yaml.Unmarshal(rawConfig, serverConfig.ServerParam); err != nil {
			return nil, fmt.Errorf("unable to interpret param file: %w", err)
		}
	} else {
		// Create default param file
		logrus.Infof("Create default param file")
		if err = yaml.Unmarshal(ParamDefaultFile, serverConfig.ServerParam); err != nil {
			return nil, fmt.Errorf("unable to interpret default param file: %w", err)
		}
		if err = os.WriteFile(serverConfig.GetCompleteParamFilename(), ParamDefaultFile, 0660); err != nil {
			logrus.Warnf("Unable to save param file: %v", err)
		}
	}

	if apiKey := os.Getenv(TransitApiKeyEnv); apiKey != "" {
		serverConfig.Transit.ApiKey = apiKey
	}
	if apiKey := os.Getenv(RemoteApiKeyEnv); apiKey != "" {
		serverConfig.ApiParam.ApiKey = apiKey
	}
	if serverConfig.Transit.ApiKey == "" {
		logrus.Warnf("No transit api key, set %s in %s", TransitApiKeyEnv, serverConfig.GetCompleteEnvFilename())
	}

	if err = serverConfig.ServerParam.Validate(); err != nil {
		return nil, fmt.Errorf("invalid param file %s: %w", serverConfig.GetCompleteParamFilename(), err)
	}

	// Open state file
	serverConfig.ServerState = NewServerState(serverConfig.GetCompleteStateFilename())

	return serverConfig, nil
}

// ActiveProfile returns the cadence selected on the command line
func (sc *ServerConfig) ActiveProfile() Profile {
	if sc.FastMode {
		return sc.Profiles[FastProfile]
	}
	return sc.Profiles[NormalProfile]
}

func (sc *ServerConfig) GetCompleteParamFilename() string {
	return filepath.Join(sc.ConfigDir, paramFilename)
}

func (sc *ServerConfig) GetCompleteStateFilename() string {
	return filepath.Join(sc.ConfigDir, stateFilename)
}

func (sc *ServerConfig) GetCompleteEnvFilename() string {
	return filepath.Join(sc.ConfigDir, envFilename)
}

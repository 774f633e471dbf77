// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/thruster_manager/internal/health"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker            string
	MQTTClientIDManager   string
	MQTTClientIDConsole   string
	MQTTClientIDWeb       string
	MQTTClientIDDisplay   string
	MQTTClientIDPublisher string

	// Topics
	TopicThrusterCommands string
	TopicDiagnostics      string

	// Thruster hardware
	// Driver: "i2c" for BlueESC controllers, "sim" for the bench simulator
	ThrusterDriver    string
	ThrusterI2CBus    string
	ThrusterLeftAddr  uint16
	ThrusterRightAddr uint16
	ThrusterLeftName  string
	ThrusterRightName string
	// Diagnostics order, e.g. "right,left"
	ThrusterOrder     string
	SimSupplyVolts    float64

	// Health thresholds
	Thresholds health.Thresholds

	// Timing
	MonitorInterval int // milliseconds

	// Serial tether (empty port disables it)
	TetherSerialPort string
	TetherBaudRate   int

	// HTTP
	MetricsPort   int // 0 disables the manager's metrics endpoint
	WebServerPort int

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds

	// Command publisher (bench)
	PublisherInterval int // milliseconds

	// Logging
	LogFile      string
	LogMaxSizeMB int
	LogMaxFiles  int
}

// Package-level singleton, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDManager:   "thruster-manager",
		MQTTClientIDConsole:   "thruster-console",
		MQTTClientIDWeb:       "thruster-web",
		MQTTClientIDDisplay:   "thruster-display",
		MQTTClientIDPublisher: "thruster-command-publisher",

		TopicThrusterCommands: "sub/thrustercommands",
		TopicDiagnostics:      "sub/diagnostics",

		ThrusterDriver:    "i2c",
		ThrusterI2CBus:    "2",
		ThrusterLeftAddr:  0x2D,
		ThrusterRightAddr: 0x2E,
		ThrusterLeftName:  "Thruster L",
		ThrusterRightName: "Thruster R",
		ThrusterOrder:     "right,left",
		SimSupplyVolts:    16.0,

		Thresholds: health.DefaultThresholds(),

		MonitorInterval: 20,

		TetherBaudRate: 115200,

		MetricsPort:   9102,
		WebServerPort: 8080,

		DisplayI2CBus:         "1",
		DisplayUpdateInterval: 250,

		PublisherInterval: 100,

		LogMaxSizeMB: 10,
		LogMaxFiles:  5,
	}
}

// Load reads the configuration file on top of Default and returns it.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_MANAGER":
		c.MQTTClientIDManager = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CLIENT_ID_PUBLISHER":
		c.MQTTClientIDPublisher = value

	// Topics
	case "TOPIC_THRUSTER_COMMANDS":
		c.TopicThrusterCommands = value
	case "TOPIC_DIAGNOSTICS":
		c.TopicDiagnostics = value

	// Thruster hardware
	case "THRUSTER_DRIVER":
		v := strings.ToLower(value)
		if v != "i2c" && v != "sim" {
			return fmt.Errorf("THRUSTER_DRIVER must be i2c or sim, got %q", value)
		}
		c.ThrusterDriver = v
	case "THRUSTER_I2C_BUS":
		c.ThrusterI2CBus = value
	case "THRUSTER_LEFT_I2C_ADDR":
		addr, err := parseI2CAddr(value)
		if err != nil {
			return fmt.Errorf("invalid THRUSTER_LEFT_I2C_ADDR %q: %w", value, err)
		}
		c.ThrusterLeftAddr = addr
	case "THRUSTER_RIGHT_I2C_ADDR":
		addr, err := parseI2CAddr(value)
		if err != nil {
			return fmt.Errorf("invalid THRUSTER_RIGHT_I2C_ADDR %q: %w", value, err)
		}
		c.ThrusterRightAddr = addr
	case "THRUSTER_LEFT_NAME":
		c.ThrusterLeftName = value
	case "THRUSTER_RIGHT_NAME":
		c.ThrusterRightName = value
	case "THRUSTER_ORDER":
		c.ThrusterOrder = value
	case "SIM_SUPPLY_VOLTS":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SIM_SUPPLY_VOLTS %q: %w", value, err)
		}
		c.SimSupplyVolts = v

	// Health thresholds
	case "THRUSTER_UNDERVOLT":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid THRUSTER_UNDERVOLT %q: %w", value, err)
		}
		c.Thresholds.UndervoltVolts = v
	case "THRUSTER_OVERVOLT":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid THRUSTER_OVERVOLT %q: %w", value, err)
		}
		c.Thresholds.OvervoltVolts = v
	case "THRUSTER_OVERCURRENT":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid THRUSTER_OVERCURRENT %q: %w", value, err)
		}
		c.Thresholds.OvercurrentAmps = v
	case "THRUSTER_OVERTEMP":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid THRUSTER_OVERTEMP %q: %w", value, err)
		}
		c.Thresholds.OvertempCelsius = v

	// Timing
	case "MONITOR_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MONITOR_INTERVAL %q: %w", value, err)
		}
		c.MonitorInterval = interval

	// Serial tether
	case "TETHER_SERIAL_PORT":
		c.TetherSerialPort = value
	case "TETHER_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TETHER_BAUD_RATE %q: %w", value, err)
		}
		c.TetherBaudRate = rate

	// HTTP
	case "METRICS_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid METRICS_PORT %q: %w", value, err)
		}
		c.MetricsPort = port
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// Command publisher
	case "PUBLISHER_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PUBLISHER_INTERVAL %q: %w", value, err)
		}
		c.PublisherInterval = interval

	// Logging
	case "LOG_FILE":
		c.LogFile = value
	case "LOG_MAX_SIZE_MB":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LOG_MAX_SIZE_MB %q: %w", value, err)
		}
		c.LogMaxSizeMB = v
	case "LOG_MAX_FILES":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LOG_MAX_FILES %q: %w", value, err)
		}
		c.LogMaxFiles = v

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that required fields are set and consistent.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicThrusterCommands == "" {
		return fmt.Errorf("TOPIC_THRUSTER_COMMANDS is required")
	}
	if c.TopicDiagnostics == "" {
		return fmt.Errorf("TOPIC_DIAGNOSTICS is required")
	}
	if c.ThrusterDriver == "i2c" && c.ThrusterLeftAddr == c.ThrusterRightAddr {
		return fmt.Errorf("THRUSTER_LEFT_I2C_ADDR and THRUSTER_RIGHT_I2C_ADDR must differ (both 0x%02X)", c.ThrusterLeftAddr)
	}
	if _, err := c.Order(); err != nil {
		return fmt.Errorf("THRUSTER_ORDER: %w", err)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL must be positive, got %d", c.MonitorInterval)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	if c.PublisherInterval <= 0 {
		return fmt.Errorf("PUBLISHER_INTERVAL must be positive, got %d", c.PublisherInterval)
	}
	if c.TetherBaudRate <= 0 {
		return fmt.Errorf("TETHER_BAUD_RATE must be positive, got %d", c.TetherBaudRate)
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be within 1-65535, got %d", c.WebServerPort)
	}
	// 0 disables the metrics endpoint
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("METRICS_PORT must be within 0-65535, got %d", c.MetricsPort)
	}
	if c.LogMaxSizeMB <= 0 {
		return fmt.Errorf("LOG_MAX_SIZE_MB must be positive, got %d", c.LogMaxSizeMB)
	}
	// 0 keeps every rotated file
	if c.LogMaxFiles < 0 {
		return fmt.Errorf("LOG_MAX_FILES must not be negative, got %d", c.LogMaxFiles)
	}
	return nil
}

// MonitorPeriod returns MonitorInterval as a duration.
func (c *Config) MonitorPeriod() time.Duration {
	return time.Duration(c.MonitorInterval) * time.Millisecond
}

func parseI2CAddr(value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, err
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("7-bit address out of range: 0x%X", addr)
	}
	return uint16(addr), nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

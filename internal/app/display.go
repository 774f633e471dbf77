// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/thruster_manager/internal/config"
	"github.com/relabs-tech/thruster_manager/internal/health"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13 // basicfont.Face7x13
	maxLines      = displayHeight / lineHeight
)

// RunDisplay shows the latest thruster diagnostics on an SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()
	defer setupLogging("display", cfg).Close()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus %q: %w", cfg.DisplayI2CBus, err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on I2C bus %s", cfg.DisplayI2CBus)

	if err := drawLines(dev, []string{"Thruster", "Manager", "Starting..."}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	store := newStatusStore()
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay, "display", func(c mqtt.Client) {
		subscribe(c, "display", cfg.TopicDiagnostics, statusHandler("display", store.Set))
	})
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for range ticker.C {
		st, have := store.Get()
		if err := drawLines(dev, statusLines(st, have)); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}
	return nil
}

// statusLines renders a status for the OLED: the aggregate level followed
// by one line per thruster.
func statusLines(st health.Status, have bool) []string {
	if !have {
		return []string{"Thrusters", "Waiting..."}
	}
	lines := []string{fmt.Sprintf("%s %s", st.Name, st.Level)}
	for _, kv := range st.Values {
		name, ok := strings.CutSuffix(kv.Key, " Alive")
		if !ok {
			continue
		}
		label := shortName(name)
		if kv.Value != "true" {
			lines = append(lines, label+" OFFLINE")
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s %s %s", label,
			displayValue(st, name+" Voltage", "%.1fV"),
			displayValue(st, name+" Current", "%.1fA"),
			displayValue(st, name+" Temperature", "%.0fC"),
		))
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

// shortName keeps the last word of a thruster name ("Thruster R" -> "R").
func shortName(name string) string {
	if i := strings.LastIndexByte(name, ' '); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return name
}

func displayValue(st health.Status, key, format string) string {
	raw, ok := st.Value(key)
	if !ok {
		return "--"
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return "--"
	}
	return fmt.Sprintf(format, v)
}

func drawLines(dev *ssd1306.Dev, lines []string) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, (i+1)*lineHeight)
		drawer.DrawString(line)
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

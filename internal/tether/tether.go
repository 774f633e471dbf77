// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package tether reads velocity commands from the topside serial tether.
//
// Commands are NMEA 0183 framed so every line carries a checksum:
//
//	$THVEL,<linear.x>,<linear.y>,<linear.z>,<angular.x>,<angular.y>,<angular.z>*hh
package tether

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/thruster_manager/internal/mixer"
)

const (
	// Talker is the NMEA talker ID used by the topside station.
	Talker = "TH"
	// TypeVEL is the velocity command sentence type.
	TypeVEL = "VEL"
)

// VEL is a parsed velocity command sentence.
type VEL struct {
	nmea.BaseSentence
	Twist mixer.Twist
}

func init() {
	nmea.MustRegisterParser(TypeVEL, func(s nmea.BaseSentence) (nmea.Sentence, error) {
		p := nmea.NewParser(s)
		p.AssertType(TypeVEL)
		v := VEL{
			BaseSentence: s,
			Twist: mixer.Twist{
				Linear: mixer.Vector3{
					X: p.Float64(0, "linear x"),
					Y: p.Float64(1, "linear y"),
					Z: p.Float64(2, "linear z"),
				},
				Angular: mixer.Vector3{
					X: p.Float64(3, "angular x"),
					Y: p.Float64(4, "angular y"),
					Z: p.Float64(5, "angular z"),
				},
			},
		}
		return v, p.Err()
	})
}

// ParseLine parses one tether line into a velocity command.
func ParseLine(line string) (mixer.Twist, error) {
	sentence, err := nmea.Parse(strings.TrimSpace(line))
	if err != nil {
		return mixer.Twist{}, err
	}
	v, ok := sentence.(VEL)
	if !ok {
		return mixer.Twist{}, fmt.Errorf("unexpected sentence %s", sentence.DataType())
	}
	return v.Twist, nil
}

// Format renders t as a $THVEL sentence with checksum.
func Format(t mixer.Twist) string {
	body := fmt.Sprintf("%sVEL,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f", Talker,
		t.Linear.X, t.Linear.Y, t.Linear.Z, t.Angular.X, t.Angular.Y, t.Angular.Z)
	return fmt.Sprintf("$%s*%s", body, nmea.Checksum(body))
}

// maxLineLen bounds one sentence. NMEA allows 82 characters; anything far
// longer is line noise.
const maxLineLen = 512

var (
	// openPort is replaced in tests.
	openPort = Open

	reopenDelay    = time.Second
	maxReopenDelay = 30 * time.Second
)

// Read parses lines from r until EOF or ctx is done and hands every valid
// command to submit. Malformed and overlong lines are logged and skipped.
func Read(ctx context.Context, r io.Reader, submit func(mixer.Twist)) error {
	br := bufio.NewReaderSize(r, maxLineLen)
	discarding := false
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		chunk, err := br.ReadSlice('\n')
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			if !discarding {
				log.Printf("tether: dropped line longer than %d bytes", maxLineLen)
			}
			discarding = true
		case err == nil:
			// the newline ending an overlong line resynchronizes the reader
			if !discarding {
				handleLine(string(chunk), submit)
			}
			discarding = false
		case errors.Is(err, io.EOF):
			if !discarding {
				handleLine(string(chunk), submit)
			}
			return nil
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("tether read: %w", err)
		}
	}
}

func handleLine(raw string, submit func(mixer.Twist)) {
	line := strings.TrimSpace(raw)
	// NMEA sentences start with '$'; skip line noise and echoes
	if !strings.HasPrefix(line, "$") {
		return
	}
	t, err := ParseLine(line)
	if err != nil {
		log.Printf("tether: dropped %q: %v", line, err)
		return
	}
	submit(t)
}

// Open opens the tether serial port.
func Open(portName string, baud int) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("tether: open %s: %w", portName, err)
	}
	return port, nil
}

// Run feeds commands from portName to submit until ctx is done. The port is
// reopened, with a growing delay, whenever it fails to open or stops reading.
func Run(ctx context.Context, portName string, baud int, submit func(mixer.Twist)) error {
	delay := reopenDelay
	for {
		started := time.Now()
		err := session(ctx, portName, baud, submit)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			err = io.EOF
		}
		if time.Since(started) > maxReopenDelay {
			delay = reopenDelay
		}
		log.Printf("tether: %v; reopening %s in %s", err, portName, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxReopenDelay)
	}
}

func session(ctx context.Context, portName string, baud int, submit func(mixer.Twist)) error {
	port, err := openPort(portName, baud)
	if err != nil {
		return err
	}
	log.Printf("tether: serial port opened on %s at %d baud", portName, baud)

	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer func() {
		if stop() {
			port.Close()
		}
	}()
	return Read(ctx, port, submit)
}

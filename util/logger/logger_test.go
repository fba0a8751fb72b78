/*
 * m68kcore - Logger handler test cases
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerWritesToFile(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, false)
	log := slog.New(h)

	log.Info("bus fault", "addr", "0x00001000")

	out := buf.String()
	if !strings.Contains(out, "bus fault") || !strings.Contains(out, "0x00001000") {
		t.Errorf("log output = %q, want it to contain the message and attrs", out)
	}
}

func TestHandlerStillFilesDebugRecordsWhenStderrMirrorIsOff(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false)
	log := slog.New(h)

	log.Debug("single-step trace")

	if !strings.Contains(buf.String(), "single-step trace") {
		t.Errorf("file output should receive debug records even with debug=false; got %q", buf.String())
	}
}

func TestSetDebugTogglesStderrMirroring(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false)
	if h.debug {
		t.Fatalf("debug should start false")
	}
	h.SetDebug(true)
	if !h.debug {
		t.Errorf("SetDebug(true) should set debug")
	}
}

func TestNewHandlerWithNilFileDiscardsFileCopy(t *testing.T) {
	h := NewHandler(nil, nil, false)
	log := slog.New(h)
	log.Info("no panic expected")
}

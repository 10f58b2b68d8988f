/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package banner provides the startup banner display for WrenDB.

The ASCII art logo is embedded at compile time via the //go:embed
directive, so the binary carries its own branding with no runtime
file dependencies.

Colors are applied with ANSI escape sequences, which are supported by
modern terminals on Linux, macOS, and Windows 10+.

Usage:

	func main() {
	    banner.Print()
	    // ... rest of initialization
	}
*/
package banner

import (
	_ "embed" // Required for the //go:embed directive
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"wrendb/internal/config"
)

// banner contains the ASCII art logo loaded from banner.txt at compile time.
//
//go:embed banner.txt
var banner string

// ANSI escape codes for terminal text formatting.
const (
	// AnsiRed sets the foreground color to red.
	AnsiRed = "\033[31m"

	// AnsiGreen sets the foreground color to green.
	AnsiGreen = "\033[32m"

	// AnsiYellow sets the foreground color to yellow.
	AnsiYellow = "\033[33m"

	// AnsiCyan sets the foreground color to cyan.
	AnsiCyan = "\033[36m"

	// AnsiReset clears all text formatting and returns to default.
	AnsiReset = "\033[0m"

	// AnsiBold enables bold text rendering.
	AnsiBold = "\033[1m"

	// AnsiDim enables dim/faint text rendering.
	AnsiDim = "\033[2m"
)

// Version information for the WrenDB application.
const (
	Version   = "01.26.14"
	Copyright = "(c)2026 Firefly Software Solutions Inc"
	License   = "Licensed under Apache 2.0"
)

// Print displays the startup banner with version and copyright information.
// Call once at application startup.
func Print() {
	fmt.Println(AnsiRed + banner + AnsiReset)
	fmt.Println(AnsiRed + AnsiBold + ":: WrenDB ::                    (v" + Version + ")" + AnsiReset)
	fmt.Println(AnsiGreen + AnsiBold + Copyright + AnsiReset)
	fmt.Println(AnsiGreen + AnsiBold + License + AnsiReset)
	fmt.Println()
}

// PrintWithConfig prints the banner followed by a compact overview of the
// effective configuration, so a user can see at a glance where data lives
// and which features are active.
func PrintWithConfig(cfg *config.Config) {
	PrintWithConfigTo(os.Stdout, cfg)
}

// PrintWithConfigTo writes the banner with configuration to the specified writer.
func PrintWithConfigTo(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, AnsiRed+banner+AnsiReset)
	fmt.Fprintln(w, AnsiRed+AnsiBold+":: WrenDB ::                    (v"+Version+")"+AnsiReset)
	fmt.Fprintln(w, AnsiDim+"  Embedded SQL Database with Updatable Views"+AnsiReset)
	fmt.Fprintln(w)

	printConfigSource(w, cfg)
	printCompactConfig(w, cfg)

	fmt.Fprintln(w, AnsiDim+"  "+Copyright+AnsiReset)
	fmt.Fprintln(w)
}

func printConfigSource(w io.Writer, cfg *config.Config) {
	fmt.Fprint(w, "  "+AnsiDim+"Config: "+AnsiReset)
	if cfg.ConfigFile != "" {
		fmt.Fprintln(w, AnsiYellow+cfg.ConfigFile+AnsiReset)
	} else {
		fmt.Fprintln(w, AnsiDim+"defaults + environment"+AnsiReset)
	}
	fmt.Fprintln(w)
}

func printCompactConfig(w io.Writer, cfg *config.Config) {
	const lineWidth = 78

	printSectionHeader(w, "Storage", lineWidth)
	dataDir := cfg.DataDir
	if dataDir == "" || dataDir == ":memory:" {
		dataDir = AnsiYellow + "in-memory" + AnsiReset
	}
	printRow3(w,
		fmtKV("Data", dataDir),
		fmtKV("Log", cfg.LogLevel),
		"")
	fmt.Fprintln(w)

	printSectionHeader(w, "Security", lineWidth)
	printSecurityInfo(w, cfg)
	fmt.Fprintln(w)

	printSectionHeader(w, "Query", lineWidth)
	printRow3(w,
		fmtKV("Plan Cache", fmt.Sprintf("%d entries", cfg.PlanCacheEntries)),
		fmtKV("Recursion", fmt.Sprintf("%d", cfg.MaxRecursionDepth)),
		fmtKV("Collation", cfg.Collation))
	printRow3(w,
		fmtKV("CPUs", fmt.Sprintf("%d", runtime.NumCPU())),
		fmtKV("GOMAXPROCS", fmt.Sprintf("%d", runtime.GOMAXPROCS(0))),
		"")
	fmt.Fprintln(w)
}

func printSectionHeader(w io.Writer, title string, width int) {
	titleLen := len(title) + 4 // "[ title ]"
	leftPad := 2
	rightPad := width - leftPad - titleLen
	if rightPad < 0 {
		rightPad = 0
	}
	fmt.Fprintf(w, "  %s[ %s%s%s ]%s%s\n",
		AnsiDim+strings.Repeat("-", leftPad),
		AnsiReset+AnsiCyan+AnsiBold, title, AnsiReset+AnsiDim,
		strings.Repeat("-", rightPad),
		AnsiReset)
}

func fmtKV(key, value string) string {
	return fmt.Sprintf("%s%s:%s %s", AnsiDim, key, AnsiReset, value)
}

func printRow3(w io.Writer, col1, col2, col3 string) {
	fmt.Fprintf(w, "  %-32s %-26s %s\n", col1, col2, col3)
}

func printRow2(w io.Writer, col1, col2 string) {
	fmt.Fprintf(w, "  %-40s %s\n", col1, col2)
}

func printSecurityInfo(w io.Writer, cfg *config.Config) {
	var enc string
	if cfg.EncryptionEnabled {
		enc = fmtKV("Encryption", AnsiGreen+"AES-256-GCM"+AnsiReset)
	} else {
		enc = fmtKV("Encryption", AnsiYellow+"off"+AnsiReset)
	}
	var comp string
	if cfg.CompressionEnabled {
		comp = fmtKV("Compression", AnsiGreen+"gzip"+AnsiReset)
	} else {
		comp = fmtKV("Compression", AnsiDim+"off"+AnsiReset)
	}
	printRow2(w, enc, comp)
}

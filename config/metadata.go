// File: config/metadata.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Roster metadata: a plain-text file with one backend per line,
//
//	NAME ADDRESS PORT
//	SERVER_0 127.0.0.1 2000
//
// Lines beyond the roster capacity are dropped; malformed lines are
// skipped with a warning.

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Field limits inherited from the on-disk format.
const (
	MaxNameLen    = 19
	MaxAddressLen = 15
)

// DefaultMetadataPath is where the balancer looks for the roster file.
const DefaultMetadataPath = "./servers_metadata.txt"

// ServerEntry is one parsed roster line.
type ServerEntry struct {
	Name    string
	Address string
	Port    int
}

// String re-emits the entry in the three-field on-disk format.
func (e ServerEntry) String() string {
	return fmt.Sprintf("%s %s %d", e.Name, e.Address, e.Port)
}

// ParseServers reads up to max entries from r. Malformed lines are skipped
// with a warning rather than aborting the parse.
func ParseServers(r io.Reader, max int) ([]ServerEntry, error) {
	var entries []ServerEntry
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if len(entries) >= max {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		entry, err := parseLine(line)
		if err != nil {
			log.Warn().Str("line", line).Err(err).Msg("skipping malformed metadata line")
			continue
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return entries, fmt.Errorf("read metadata: %w", err)
	}
	return entries, nil
}

func parseLine(line string) (ServerEntry, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return ServerEntry{}, fmt.Errorf("want 3 fields, got %d", len(fields))
	}
	if len(fields[0]) > MaxNameLen {
		return ServerEntry{}, fmt.Errorf("name longer than %d characters", MaxNameLen)
	}
	if len(fields[1]) > MaxAddressLen {
		return ServerEntry{}, fmt.Errorf("address longer than %d characters", MaxAddressLen)
	}
	port, err := strconv.Atoi(fields[2])
	if err != nil {
		return ServerEntry{}, fmt.Errorf("port %q: %w", fields[2], err)
	}
	return ServerEntry{Name: fields[0], Address: fields[1], Port: port}, nil
}

// LoadServers opens path and parses up to max entries from it.
func LoadServers(path string, max int) ([]ServerEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseServers(f, max)
}

// ResolveAndLoad loads the metadata file at path. If the file cannot be
// opened it prompts on out and reads replacement paths from in, one per
// line with the trailing newline stripped, until a file opens.
func ResolveAndLoad(path string, max int, in io.Reader, out io.Writer) ([]ServerEntry, error) {
	entries, err := LoadServers(path, max)
	if err == nil {
		return entries, nil
	}
	log.Warn().Str("path", path).Err(err).Msg("metadata file not openable")

	prompts := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "Provide file path to server metadata: ")
		line, err := prompts.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("read metadata path: %w", err)
		}
		candidate := strings.TrimRight(line, "\r\n")
		entries, lerr := LoadServers(candidate, max)
		if lerr == nil {
			return entries, nil
		}
		log.Warn().Str("path", candidate).Err(lerr).Msg("metadata file not openable")
		if err != nil {
			// Input exhausted with no openable file.
			return nil, fmt.Errorf("read metadata path: %w", err)
		}
	}
}

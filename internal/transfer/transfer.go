// Package transfer shells out to the tool that pulls recording media from
// a site onto local disk.
package transfer

import (
	"context"
	"fmt"
	"os/exec"
	"path"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Executor pulls every file of one recording into a local folder. source is
// the tool's remote location argument, localDir an existing directory.
type Executor interface {
	Fetch(ctx context.Context, source, localDir string, dryRun bool) error
}

// RemoteSource builds the remote glob covering every file of a recording.
// The glob also matches longer ids sharing the prefix; the media counter
// filters those out locally.
func RemoteSource(contentRoot string, id int64) string {
	return path.Join(contentRoot, strconv.FormatInt(id, 10)) + "*"
}

// Source formats the remote location for the tool: [user@]host:path.
func Source(user, host, remotePath string) string {
	if user != "" {
		return user + "@" + host + ":" + remotePath
	}
	return host + ":" + remotePath
}

// Rsync runs rsync over ssh. Modification times are preserved so repeated
// fetches of the same folder copy nothing new.
type Rsync struct {
	Binary    string
	ExtraArgs []string

	// run is swapped out in tests.
	run func(ctx context.Context, argv []string) (string, error)
}

func NewRsync(binary string, extraArgs []string) *Rsync {
	return &Rsync{Binary: binary, ExtraArgs: extraArgs, run: runCommand}
}

func (r *Rsync) Fetch(ctx context.Context, source, localDir string, dryRun bool) error {
	argv := []string{r.Binary, "-rt"}
	if dryRun {
		argv = append(argv, "--dry-run", "-v")
	}
	argv = append(argv, r.ExtraArgs...)
	argv = append(argv, source, localDir)

	out, err := r.run(ctx, argv)
	if err != nil {
		return fmt.Errorf("transfer from %s: %w: %s", source, err, tail(out))
	}
	log.Debug().Str("source", source).Msg("transfer finished")
	return nil
}

func runCommand(ctx context.Context, argv []string) (string, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// tail keeps error messages readable when the tool dumps a long file list.
func tail(out string) string {
	out = strings.TrimSpace(out)
	lines := strings.Split(out, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "; ")
}

package audio

import (
	"context"
	"fmt"
	"os/exec"
)

// Player plays an audio file to completion.
type Player interface {
	Play(ctx context.Context, file string) error
}

// CommandPlayer plays files with an external command line player.
type CommandPlayer struct {
	Command string
	Args    []string
}

// knownPlayers are tried in order when no player is configured.
var knownPlayers = []CommandPlayer{
	{Command: "mpv", Args: []string{"--no-video", "--really-quiet"}},
	{Command: "ffplay", Args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{Command: "afplay"},
	{Command: "aplay", Args: []string{"-q"}},
}

var lookPath = exec.LookPath

// NewCommandPlayer returns the named player, or the first installed known
// player when name is "" or "auto".
func NewCommandPlayer(name string) (*CommandPlayer, error) {
	if name == "" || name == "auto" {
		for _, candidate := range knownPlayers {
			if _, err := lookPath(candidate.Command); err == nil {
				player := candidate
				return &player, nil
			}
		}
		return nil, fmt.Errorf("no audio player found (tried mpv, ffplay, afplay, aplay)")
	}

	if _, err := lookPath(name); err != nil {
		return nil, fmt.Errorf("audio player %s not found: %w", name, err)
	}

	for _, candidate := range knownPlayers {
		if candidate.Command == name {
			player := candidate
			return &player, nil
		}
	}
	return &CommandPlayer{Command: name}, nil
}

// Play runs the player and waits for it to exit.
func (p *CommandPlayer) Play(ctx context.Context, file string) error {
	args := append(append([]string(nil), p.Args...), file)
	output, err := exec.CommandContext(ctx, p.Command, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w\nOutput: %s", p.Command, err, string(output))
	}
	return nil
}

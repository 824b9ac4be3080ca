package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	domain "github.com/clinwell/checkin-api/internal/domain/checkins"
)

const probeTimeout = 10 * time.Second

// FFProbe inspects an uploaded video with the ffprobe binary before it is
// sent to the provider. Optional: when the binary is missing the check-in
// service treats probe errors as soft.
type FFProbe struct {
	Bin string
}

func New() *FFProbe {
	return &FFProbe{Bin: "ffprobe"}
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

func (p *FFProbe) Probe(ctx context.Context, path string) (domain.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return domain.ProbeResult{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return domain.ProbeResult{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var res domain.ProbeResult
	if parsed.Format.Duration != "" {
		if d, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			res.DurationSeconds = d
		}
	}
	for _, s := range parsed.Streams {
		if s.CodecType == "video" {
			res.HasVideoStream = true
			break
		}
	}
	return res, nil
}

package thumbnail

import (
	"path/filepath"
	"strings"
)

// ResolvedPaths is a video path split into its directory, stem and
// extension. Ext has no leading dot.
type ResolvedPaths struct {
	Dir  string
	Stem string
	Ext  string
}

// OutputTarget is where the muxer writes (StagingPath) and where the
// finished file ends up (FinalPath). They differ only in overwrite mode.
type OutputTarget struct {
	FinalPath   string
	StagingPath string
}

// ResolvePaths splits videoPath. It never fails: a missing extension or
// stem yields an empty string.
func ResolvePaths(videoPath string) ResolvedPaths {
	dir, file := filepath.Split(videoPath)
	if dir == "" {
		dir = "."
	} else {
		dir = filepath.Clean(dir)
	}

	if file == "" || file == "." || file == ".." {
		return ResolvedPaths{Dir: dir}
	}

	// A leading dot marks a hidden file, not an extension.
	i := strings.LastIndexByte(file, '.')
	if i <= 0 {
		return ResolvedPaths{Dir: dir, Stem: file}
	}
	return ResolvedPaths{Dir: dir, Stem: file[:i], Ext: file[i+1:]}
}

// ComputeTarget picks the staging and final paths for mode.
func ComputeTarget(videoPath string, p ResolvedPaths, mode SaveMode) OutputTarget {
	switch m := mode.(type) {
	case Overwrite:
		return OutputTarget{
			FinalPath:   videoPath,
			StagingPath: p.join(p.Stem + "_temp"),
		}
	case SaveAsNew:
		base := m.OutputFilename
		if strings.TrimSpace(base) == "" {
			base = p.Stem + "_thumb"
		}
		out := p.join(base)
		return OutputTarget{FinalPath: out, StagingPath: out}
	default:
		return ComputeTarget(videoPath, p, SaveAsNew{})
	}
}

func (p ResolvedPaths) join(base string) string {
	if p.Ext != "" {
		base += "." + p.Ext
	}
	return filepath.Join(p.Dir, base)
}

// tempImageName is the deterministic temp file name for inline images
// decoded on behalf of a video with the given stem.
func tempImageName(stem string) string {
	return "thumb_" + stem + ".png"
}

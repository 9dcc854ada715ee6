package lcplot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/lightcurve.report/internal/fsutil"
	"github.com/banshee-data/lightcurve.report/internal/lcset"
	"github.com/banshee-data/lightcurve.report/internal/monitoring"
	"github.com/banshee-data/lightcurve.report/internal/security"
)

// UnlabeledClass is the directory for objects without a class.
const UnlabeledClass = "unlabeled"

// Title is the figure title used for an object of set.
func Title(set *lcset.LabeledSet, name string) string {
	return fmt.Sprintf("survey=%s-%s - obj=%s [%s]", set.Survey, strings.Join(set.BandNames, ""), name, className(set, name))
}

func className(set *lcset.LabeledSet, name string) string {
	if obj, ok := set.Get(name); ok {
		if c, ok := set.ClassName(obj.Y()); ok {
			return c
		}
	}
	return UnlabeledClass
}

// ImagePath is where ExportImages writes the figure of object name:
// <dir>/<set>/<class>/<name>.png.
func ImagePath(dir string, set *lcset.LabeledSet, name string) string {
	return filepath.Join(dir, security.PathElement(set.Name), security.PathElement(className(set, name)), security.PathElement(name)+".png")
}

// ExportImages renders every object of set as a PNG under dir and returns
// the number of files written. Bands the object lacks are skipped.
func ExportImages(ctx context.Context, fsys fsutil.FileSystem, dir string, set *lcset.LabeledSet, opts Options) (int, error) {
	written := 0
	for _, name := range set.ObjectNames() {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		obj, _ := set.Get(name)
		var bands []string
		for _, b := range set.BandNames {
			if _, ok := obj.Band(b); ok {
				bands = append(bands, b)
			}
		}
		if len(bands) == 0 {
			monitoring.Debugf("lcplot: %s has none of the set bands, skipped", name)
			continue
		}

		path := ImagePath(dir, set, name)
		if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return written, fmt.Errorf("create dir for %s: %w", name, err)
		}
		f, err := fsys.Create(path)
		if err != nil {
			return written, fmt.Errorf("create %s: %w", path, err)
		}
		err = RenderPNG(f, obj, Title(set, name), opts, bands...)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return written, fmt.Errorf("render %s: %w", name, err)
		}
		written++
	}
	monitoring.Logf("lcplot: wrote %d images for %q under %s", written, set.Name, dir)
	return written, nil
}

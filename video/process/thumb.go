package process

import (
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

// WriteSnapshot saves frame as a JPEG with the ROI outlined, so a caller can
// check the tracked region against the scene before or after a run.
func WriteSnapshot(path string, frame gocv.Mat, roi ROI) error {
	tmat := frame.Clone()
	defer tmat.Close()
	roi.Draw(&tmat)

	jpeg, err := gocv.IMEncode(gocv.JPEGFileExt, tmat)
	if err != nil {
		return err
	}
	defer jpeg.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ExtTemp
	if err := os.WriteFile(tmp, jpeg.GetBytes(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}


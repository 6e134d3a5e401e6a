package ocr

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// reBoxNoise matches the ruled lines tesseract reads out of form borders.
var reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)

// tesseractArgs builds "tesseract <img> stdout -l <lang> [opts] [config]".
func (e *Extractor) tesseractArgs(img string, withTuning bool, configs ...string) []string {
	args := []string{img, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	if withTuning && e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if withTuning && e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	return append(args, configs...)
}

// tesseractOCR reads one page image. With TSV confidence enabled, a second
// pass scores the words and a weak page comes back with a warning.
func (e *Extractor) tesseractOCR(ctx context.Context, img string) (string, []string, error) {
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(img, true)...)
	if err != nil {
		return "", nil, err
	}
	text := reBoxNoise.ReplaceAllString(string(out), "")
	if !e.cfg.EnableTSVConfidence {
		return text, nil, nil
	}

	tsv, _, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(img, false, "tsv")...)
	if err != nil {
		return text, []string{"word confidence unavailable: " + err.Error()}, nil
	}
	if conf := meanTSVConfidence(string(tsv)); conf < LowConfidenceThreshold {
		return text, []string{fmt.Sprintf("low ocr confidence %.2f on %s", conf, img)}, nil
	}
	return text, nil, nil
}

// meanTSVConfidence averages the conf column of tesseract's TSV output,
// scaled to 0..1. Rows without a word (conf -1) are ignored.
func meanTSVConfidence(tsv string) float32 {
	sc := bufio.NewScanner(strings.NewReader(tsv))
	confCol := -1
	var sum float64
	var words int
	for sc.Scan() {
		cols := strings.Split(sc.Text(), "\t")
		if confCol < 0 {
			for i, c := range cols {
				if c == "conf" {
					confCol = i
				}
			}
			if confCol < 0 {
				return 0
			}
			continue
		}
		if confCol >= len(cols) {
			continue
		}
		v, err := strconv.ParseFloat(cols[confCol], 64)
		if err != nil || v < 0 {
			continue
		}
		sum += v
		words++
	}
	if words == 0 {
		return 0
	}
	return float32(sum / float64(words) / 100)
}

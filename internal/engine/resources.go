package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// VoiceHeader is the first line of every HTS voice file.
var VoiceHeader = []byte("[GLOBAL]")

// DictionaryFiles are the morphological dictionary files a dictionary
// directory must carry.
var DictionaryFiles = []string{"char.bin", "matrix.bin", "sys.dic", "unk.dic"}

var (
	ErrBadVoice      = errors.New("engine: not an HTS voice file")
	ErrBadDictionary = errors.New("engine: incomplete dictionary")
)

// CheckVoice verifies that path is a readable HTS voice file.
func CheckVoice(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, len(VoiceHeader))
	if _, err := io.ReadFull(f, head); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadVoice, path, err)
	}
	if !bytes.Equal(head, VoiceHeader) {
		return fmt.Errorf("%w: %s", ErrBadVoice, path)
	}
	return nil
}

// CheckDictionary verifies that dir holds every file in DictionaryFiles.
func CheckDictionary(dir string) error {
	for _, name := range DictionaryFiles {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadDictionary, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrBadDictionary, name)
		}
	}
	return nil
}

// CheckResources runs the checks a Load needs. An empty dictionaryDir
// skips the dictionary check.
func CheckResources(dictionaryDir, voicePath string) error {
	if dictionaryDir != "" {
		if err := CheckDictionary(dictionaryDir); err != nil {
			return err
		}
	}
	return CheckVoice(voicePath)
}

package dictionary

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/at-ishikawa/vocabox/internal/config"
)

// URL prefixes the stored asset paths start with.
const (
	ImagesURLPrefix         = "/images/"
	PronunciationsURLPrefix = "/pronunciations/"
)

var (
	ErrInvalidPronunciation = errors.New("pronunciation is not in base64 format")
	ErrInvalidImage         = errors.New("image is not in base64 format")
	ErrImageTooLarge        = errors.New("image is too large")
)

var (
	pronunciationDataURI = regexp.MustCompile(`^data:audio/mpeg;base64,(.+)$`)
	imageDataURI         = regexp.MustCompile(`^data:image/(jpeg|png|jpg);base64,(.+)$`)
)

// FileID derives the file name stem of an entry's assets.
func FileID(id int64, word string) (string, error) {
	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, word)
	if sanitized == "" {
		return "", fmt.Errorf("can't create file id from word %q", word)
	}
	return strconv.FormatInt(id, 10) + "-" + sanitized, nil
}

// FileStore keeps image and pronunciation files on disk.
type FileStore struct {
	imagesDir         string
	pronunciationsDir string
	maxImageBytes     int
}

func NewFileStore(cfg config.StorageConfig) *FileStore {
	return &FileStore{
		imagesDir:         cfg.ImagesDirectory,
		pronunciationsDir: cfg.PronunciationsDirectory,
		maxImageBytes:     cfg.MaxImageBytes,
	}
}

// ImagesDir and PronunciationsDir are the roots served as static files.
func (s *FileStore) ImagesDir() string         { return s.imagesDir }
func (s *FileStore) PronunciationsDir() string { return s.pronunciationsDir }

// DecodePronunciation validates an audio data URI and returns its bytes.
func DecodePronunciation(dataURI string) ([]byte, error) {
	match := pronunciationDataURI.FindStringSubmatch(dataURI)
	if match == nil {
		return nil, ErrInvalidPronunciation
	}
	data, err := base64.StdEncoding.DecodeString(match[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPronunciation, err)
	}
	return data, nil
}

// DecodeImage validates an image data URI and returns its bytes and
// extension.
func DecodeImage(dataURI string) ([]byte, string, error) {
	match := imageDataURI.FindStringSubmatch(dataURI)
	if match == nil {
		return nil, "", ErrInvalidImage
	}
	data, err := base64.StdEncoding.DecodeString(match[2])
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return data, match[1], nil
}

// SavePronunciation writes the audio of dataURI and returns its stored path.
func (s *FileStore) SavePronunciation(fileID, dataURI string) (string, error) {
	data, err := DecodePronunciation(dataURI)
	if err != nil {
		return "", err
	}
	name := fileID + ".mp3"
	if err := writeFile(s.pronunciationsDir, name, data); err != nil {
		return "", err
	}
	return PronunciationsURLPrefix + name, nil
}

// SaveImage writes the image of dataURI and returns its stored path.
func (s *FileStore) SaveImage(fileID, dataURI string) (string, error) {
	data, ext, err := DecodeImage(dataURI)
	if err != nil {
		return "", err
	}
	if s.maxImageBytes > 0 && len(data) > s.maxImageBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(data))
	}
	name := fileID + "." + ext
	if err := writeFile(s.imagesDir, name, data); err != nil {
		return "", err
	}
	return ImagesURLPrefix + name, nil
}

// Remove deletes the file behind a stored path. Missing files and empty
// paths are ignored.
func (s *FileStore) Remove(storedPath string) error {
	if storedPath == "" {
		return nil
	}
	file, err := s.localPath(storedPath)
	if err != nil {
		return err
	}
	if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("os.Remove(%s) > %w", file, err)
	}
	return nil
}

func (s *FileStore) localPath(storedPath string) (string, error) {
	name := path.Base(storedPath)
	switch {
	case strings.HasPrefix(storedPath, ImagesURLPrefix):
		return filepath.Join(s.imagesDir, name), nil
	case strings.HasPrefix(storedPath, PronunciationsURLPrefix):
		return filepath.Join(s.pronunciationsDir, name), nil
	default:
		return "", fmt.Errorf("unknown asset path %q", storedPath)
	}
}

// writeFile replaces dir/name atomically so readers never see a partial file.
func writeFile(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("os.MkdirAll(%s) > %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+"-*")
	if err != nil {
		return fmt.Errorf("os.CreateTemp(%s) > %w", dir, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("tmp.Write > %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tmp.Close > %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("os.Chmod(%s) > %w", tmp.Name(), err)
	}
	file := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), file); err != nil {
		return fmt.Errorf("os.Rename(%s) > %w", file, err)
	}
	return nil
}

package files

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// Subdirectories under the storage root, one per photo kind.
const (
	KindQRCode     = "qr_codes"
	KindPoster     = "posters"
	KindPayment    = "payments"
	KindScreenshot = "support_screenshots"
)

type FileService struct {
	botAPI  *tgbotapi.BotAPI
	rootDir string
}

func NewFileService(botAPI *tgbotapi.BotAPI, rootDir string) (*FileService, error) {
	for _, kind := range []string{KindQRCode, KindPoster, KindPayment, KindScreenshot} {
		if err := os.MkdirAll(filepath.Join(rootDir, kind), 0755); err != nil {
			return nil, fmt.Errorf("FileService: cannot create dir %s: %w", kind, err)
		}
	}

	return &FileService{
		botAPI:  botAPI,
		rootDir: rootDir,
	}, nil
}

// SavePhoto downloads a Telegram file into the subdirectory for its kind and
// returns the stored path.
func (fs *FileService) SavePhoto(fileID, kind string) (string, error) {
	file, err := fs.botAPI.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("FileService.SavePhoto: cannot get file: %w", err)
	}

	fileExt := filepath.Ext(file.FilePath)
	if fileExt == "" {
		fileExt = ".jpg"
	}

	fileName := fmt.Sprintf("%s%s", uuid.New().String(), fileExt)
	filePath := filepath.Join(fs.rootDir, kind, fileName)

	resp, err := http.Get(file.Link(fs.botAPI.Token))
	if err != nil {
		return "", fmt.Errorf("FileService.SavePhoto: cannot download file: %w", err)
	}

	defer resp.Body.Close()

	out, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("FileService.SavePhoto: cannot create file: %w", err)
	}

	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	if err != nil {
		return "", fmt.Errorf("FileService.SavePhoto: cannot save file: %w", err)
	}

	return filePath, nil
}

func (fs *FileService) DeleteFile(path string) error {
	if path == "" {
		return nil
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("FileService.DeleteFile: %w", err)
	}

	return nil
}

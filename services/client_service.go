// services/client_service.go
package services

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"zerogpool-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ClientService publishes Unity WebGL client builds to the R2 bucket the
// game frontend is served from.
type ClientService struct{}

func NewClientService() *ClientService {
	return &ClientService{}
}

// DeployClientBuild accepts a zipped WebGL build plus a version label,
// extracts it, and uploads every file to R2 under a version-slugged
// prefix. Admin-token protected.
func (s *ClientService) DeployClientBuild(c *fiber.Ctx) error {
	buildFile, err := c.FormFile("build_file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "build_file is required",
		})
	}
	if buildFile.Size > 2*1024*1024*1024 { // 2GB
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "build file too large (max 2GB)",
		})
	}
	if !strings.HasSuffix(strings.ToLower(buildFile.Filename), ".zip") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "build_file must be a zip archive",
		})
	}

	version := c.FormValue("version")
	if version == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "version is required",
		})
	}

	stagingID := uuid.NewString()
	zipPath := utils.GetUploadPath(filepath.Join("builds", stagingID+".zip"))
	extractDir := utils.GetUploadPath(filepath.Join("builds", stagingID))
	defer os.Remove(zipPath)
	defer os.RemoveAll(extractDir)

	if err := utils.SaveFile(buildFile, zipPath); err != nil {
		log.Printf("Failed to stage build zip: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "failed to save build file",
		})
	}

	files, err := utils.Unzip(zipPath, extractDir)
	if err != nil {
		log.Printf("Failed to extract build zip: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "invalid zip archive",
		})
	}

	entryPoint, err := utils.FindWebGLEntryPoint(extractDir)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "build has no index.html entry point",
		})
	}

	keyPrefix := "webgl/" + slug.Make(version)

	var entryURL string
	for _, rel := range files {
		key := keyPrefix + "/" + rel
		url, err := utils.UploadFileToR2(filepath.Join(extractDir, rel), key)
		if err != nil {
			log.Printf("❌ Failed to upload %s to R2: %v", key, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false, "error": "failed to upload build to R2",
			})
		}
		if rel == entryPoint {
			entryURL = url
		}
	}

	log.Printf("🚀 Deployed WebGL build %s (%d files) to %s", version, len(files), keyPrefix)

	return c.JSON(fiber.Map{
		"success":    true,
		"version":    version,
		"filesCount": len(files),
		"entryPoint": entryURL,
	})
}

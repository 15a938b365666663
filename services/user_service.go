// services/user_service.go
package services

import (
	"errors"
	"fmt"
	"log"

	"zerogpool-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// --- Save payload schema ---
// Every group and field is optional; present fields are range-checked
// before anything reaches the store. Ranges follow the game client.

type playerDataPatch struct {
	PlayerNames0  *string `json:"playerNames0"`
	PlayerNames1  *string `json:"playerNames1"`
	ChosenAvatar0 *int    `json:"chosenAvatar0"`
	ChosenAvatar1 *int    `json:"chosenAvatar1"`
	SelectedCue0  *int    `json:"selectedCue0"`
	SelectedCue1  *int    `json:"selectedCue1"`
}

func (p *playerDataPatch) Validate() error {
	if p.PlayerNames0 != nil && len(*p.PlayerNames0) > 50 {
		return errors.New("playerNames0 cannot exceed 50 characters")
	}
	if p.PlayerNames1 != nil && len(*p.PlayerNames1) > 50 {
		return errors.New("playerNames1 cannot exceed 50 characters")
	}
	if err := intRange(p.ChosenAvatar0, 0, 10, "chosenAvatar0"); err != nil {
		return err
	}
	if err := intRange(p.ChosenAvatar1, 0, 10, "chosenAvatar1"); err != nil {
		return err
	}
	if err := intRange(p.SelectedCue0, 0, 5, "selectedCue0"); err != nil {
		return err
	}
	return intRange(p.SelectedCue1, 0, 5, "selectedCue1")
}

type controlSettingsPatch struct {
	ControlMode0 *int `json:"controlMode0"`
	ControlMode1 *int `json:"controlMode1"`
	HandMode0    *int `json:"handMode0"`
	HandMode1    *int `json:"handMode1"`
}

func (p *controlSettingsPatch) Validate() error {
	if err := intRange(p.ControlMode0, 0, 2, "controlMode0"); err != nil {
		return err
	}
	if err := intRange(p.ControlMode1, 0, 2, "controlMode1"); err != nil {
		return err
	}
	if err := intRange(p.HandMode0, 0, 1, "handMode0"); err != nil {
		return err
	}
	return intRange(p.HandMode1, 0, 1, "handMode1")
}

type gameSettingsPatch struct {
	SoundEnabled             *bool    `json:"soundEnabled"`
	MusicVolVal              *float64 `json:"musicVolVal"`
	MusicVolMultiplierInGame *float64 `json:"musicVolMultiplierInGame"`
	SensitivityValue         *float64 `json:"sensitivityValue"`
	GuideType                *int     `json:"guideType"`
	SelectedTable            *int     `json:"selectedTable"`
	SelectedPattern          *int     `json:"selectedPattern"`
	RoomEnabled              *bool    `json:"roomEnabled"`
	DiamondsEnabled          *bool    `json:"diamondsEnabled"`
	RedGuideEnabled          *bool    `json:"redGuideEnabled"`
	PinchZoomEnabled         *bool    `json:"pinchZoomEnabled"`
	DontGoToTopBallInHand    *bool    `json:"dontGoToTopBallInHand"`
	TapToAimEnabled          *bool    `json:"tapToAimEnabled"`
	AutoAimEnabled           *bool    `json:"autoAimEnabled"`
}

func (p *gameSettingsPatch) Validate() error {
	if err := floatRange(p.MusicVolVal, 0, 1, "musicVolVal"); err != nil {
		return err
	}
	if err := floatRange(p.MusicVolMultiplierInGame, 0, 1, "musicVolMultiplierInGame"); err != nil {
		return err
	}
	if err := floatRange(p.SensitivityValue, 0.1, 3, "sensitivityValue"); err != nil {
		return err
	}
	if err := intRange(p.GuideType, 0, 3, "guideType"); err != nil {
		return err
	}
	if err := intRange(p.SelectedTable, 0, 9, "selectedTable"); err != nil {
		return err
	}
	return intRange(p.SelectedPattern, 0, 10, "selectedPattern")
}

type statsPatch struct {
	TotalTimePlayed         *int64 `json:"totalTimePlayed"`
	TotalGamesPlayedVsCPU   *int64 `json:"totalGamesPlayedVsCPU"`
	TotalGamesWonVsCPU      *int64 `json:"totalGamesWonVsCPU"`
	TotalGamesPlayedVsHuman *int64 `json:"totalGamesPlayedVsHuman"`
	TotalGamesWonVsHuman    *int64 `json:"totalGamesWonVsHuman"`
	TotalBallsPocketed      *int64 `json:"totalBallsPocketed"`
	TTBestScore             *int64 `json:"ttBestScore"`
	MatrixBestScore         *int64 `json:"matrixBestScore"`
}

func (p *statsPatch) Validate() error {
	for name, v := range map[string]*int64{
		"totalTimePlayed":         p.TotalTimePlayed,
		"totalGamesPlayedVsCPU":   p.TotalGamesPlayedVsCPU,
		"totalGamesWonVsCPU":      p.TotalGamesWonVsCPU,
		"totalGamesPlayedVsHuman": p.TotalGamesPlayedVsHuman,
		"totalGamesWonVsHuman":    p.TotalGamesWonVsHuman,
		"totalBallsPocketed":      p.TotalBallsPocketed,
		"ttBestScore":             p.TTBestScore,
		"matrixBestScore":         p.MatrixBestScore,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}
	return nil
}

type miscPatch struct {
	StartupCounter     *int  `json:"startupCounter"`
	UserSelControlDone *bool `json:"userSelControlDone"`
	AdsRemoved         *bool `json:"adsRemoved"`
	UseAvatarSet2      *bool `json:"useAvatarSet2"`
}

func (p *miscPatch) Validate() error {
	if p.StartupCounter != nil && *p.StartupCounter < 0 {
		return errors.New("startupCounter must be >= 0")
	}
	return nil
}

func intRange(v *int, min, max int, name string) error {
	if v != nil && (*v < min || *v > max) {
		return fmt.Errorf("%s must be between %d and %d", name, min, max)
	}
	return nil
}

func floatRange(v *float64, min, max float64, name string) error {
	if v != nil && (*v < min || *v > max) {
		return fmt.Errorf("%s must be between %g and %g", name, min, max)
	}
	return nil
}

// --- Handlers ---

// GetUser returns (creating if needed) the full profile document.
func (s *UserService) GetUser(c *fiber.Ctx) error {
	wallet := c.Query("walletAddress")
	if !IsValidWalletAddress(wallet) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid wallet address format",
		})
	}

	account, _, err := EnsureAccount(s.DB, NormalizeWallet(wallet))
	if err != nil {
		log.Printf("DB Error fetching user %s: %v", wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Internal server error",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": account})
}

// SaveUser applies a validated partial update to the profile document.
// Absent groups/fields keep their stored values.
func (s *UserService) SaveUser(c *fiber.Ctx) error {
	var req struct {
		WalletAddress   string                `json:"walletAddress"`
		PlayerData      *playerDataPatch      `json:"playerData"`
		ControlSettings *controlSettingsPatch `json:"controlSettings"`
		GameSettings    *gameSettingsPatch    `json:"gameSettings"`
		Stats           *statsPatch           `json:"stats"`
		Misc            *miscPatch            `json:"misc"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid request body",
		})
	}
	if !IsValidWalletAddress(req.WalletAddress) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid wallet address format",
		})
	}

	validators := []func() error{}
	if req.PlayerData != nil {
		validators = append(validators, req.PlayerData.Validate)
	}
	if req.ControlSettings != nil {
		validators = append(validators, req.ControlSettings.Validate)
	}
	if req.GameSettings != nil {
		validators = append(validators, req.GameSettings.Validate)
	}
	if req.Stats != nil {
		validators = append(validators, req.Stats.Validate)
	}
	if req.Misc != nil {
		validators = append(validators, req.Misc.Validate)
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "error": err.Error(),
			})
		}
	}

	account, _, err := EnsureAccount(s.DB, NormalizeWallet(req.WalletAddress))
	if err != nil {
		log.Printf("DB Error ensuring account %s: %v", req.WalletAddress, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Internal server error",
		})
	}

	applyPatches(account, req.PlayerData, req.ControlSettings, req.GameSettings, req.Stats, req.Misc)

	if err := s.DB.Save(account).Error; err != nil {
		log.Printf("DB Error saving user %s: %v", account.WalletAddress, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Internal server error",
		})
	}

	log.Printf("💾 User data saved: %s", account.WalletAddress)
	return c.JSON(fiber.Map{"success": true, "data": account})
}

// GetPlayerData returns the authenticated user's playerData group.
func (s *UserService) GetPlayerData(c *fiber.Ctx) error {
	wallet := c.Locals("wallet_address").(string)

	account, err := FindAccount(s.DB, wallet)
	if err != nil {
		log.Printf("DB Error fetching player data for %s: %v", wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Internal server error",
		})
	}
	if account == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false, "error": "User not found",
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": account.PlayerData})
}

// UpdatePlayerName sets the authenticated user's display name.
func (s *UserService) UpdatePlayerName(c *fiber.Ctx) error {
	wallet := c.Locals("wallet_address").(string)

	var req struct {
		PlayerNames0 string `json:"playerNames0"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid request body",
		})
	}
	if req.PlayerNames0 == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Player name cannot be empty",
		})
	}
	if len(req.PlayerNames0) > 50 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Player name cannot exceed 50 characters",
		})
	}

	account, err := FindAccount(s.DB, wallet)
	if err != nil {
		log.Printf("DB Error fetching account %s: %v", wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Internal server error",
		})
	}
	if account == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false, "error": "User not found",
		})
	}

	if err := s.DB.Model(account).Update("player_player_names0", req.PlayerNames0).Error; err != nil {
		log.Printf("DB Error updating player name for %s: %v", wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Internal server error",
		})
	}

	log.Printf("✏️  Player name updated for %s: %s", wallet, req.PlayerNames0)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Player name updated successfully",
		"data":    fiber.Map{"playerNames0": req.PlayerNames0},
	})
}

// GetPlayerStats returns the authenticated user's stats, optionally
// filtered to a single whitelisted statType.
func (s *UserService) GetPlayerStats(c *fiber.Ctx) error {
	wallet := c.Locals("wallet_address").(string)

	account, err := FindAccount(s.DB, wallet)
	if err != nil {
		log.Printf("DB Error fetching stats for %s: %v", wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Internal server error",
		})
	}
	if account == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false, "error": "User not found",
		})
	}

	statType := c.Query("statType")
	if statType == "" {
		return c.JSON(fiber.Map{"success": true, "data": account.Stats})
	}

	value, ok := statByName(account.Stats, statType)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid stat type",
		})
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{statType: value}})
}

func statByName(stats models.GameStats, name string) (int64, bool) {
	switch name {
	case "totalTimePlayed":
		return stats.TotalTimePlayed, true
	case "totalGamesPlayedVsCPU":
		return stats.TotalGamesPlayedVsCPU, true
	case "totalGamesWonVsCPU":
		return stats.TotalGamesWonVsCPU, true
	case "totalGamesPlayedVsHuman":
		return stats.TotalGamesPlayedVsHuman, true
	case "totalGamesWonVsHuman":
		return stats.TotalGamesWonVsHuman, true
	case "totalBallsPocketed":
		return stats.TotalBallsPocketed, true
	case "ttBestScore":
		return stats.TTBestScore, true
	case "matrixBestScore":
		return stats.MatrixBestScore, true
	}
	return 0, false
}

func applyPatches(account *models.Account, pd *playerDataPatch, cs *controlSettingsPatch, gs *gameSettingsPatch, st *statsPatch, mi *miscPatch) {
	if pd != nil {
		setString(&account.PlayerData.PlayerNames0, pd.PlayerNames0)
		setString(&account.PlayerData.PlayerNames1, pd.PlayerNames1)
		setInt(&account.PlayerData.ChosenAvatar0, pd.ChosenAvatar0)
		setInt(&account.PlayerData.ChosenAvatar1, pd.ChosenAvatar1)
		setInt(&account.PlayerData.SelectedCue0, pd.SelectedCue0)
		setInt(&account.PlayerData.SelectedCue1, pd.SelectedCue1)
	}
	if cs != nil {
		setInt(&account.ControlSettings.ControlMode0, cs.ControlMode0)
		setInt(&account.ControlSettings.ControlMode1, cs.ControlMode1)
		setInt(&account.ControlSettings.HandMode0, cs.HandMode0)
		setInt(&account.ControlSettings.HandMode1, cs.HandMode1)
	}
	if gs != nil {
		setBool(&account.GameSettings.SoundEnabled, gs.SoundEnabled)
		setFloat(&account.GameSettings.MusicVolVal, gs.MusicVolVal)
		setFloat(&account.GameSettings.MusicVolMultiplierInGame, gs.MusicVolMultiplierInGame)
		setFloat(&account.GameSettings.SensitivityValue, gs.SensitivityValue)
		setInt(&account.GameSettings.GuideType, gs.GuideType)
		setInt(&account.GameSettings.SelectedTable, gs.SelectedTable)
		setInt(&account.GameSettings.SelectedPattern, gs.SelectedPattern)
		setBool(&account.GameSettings.RoomEnabled, gs.RoomEnabled)
		setBool(&account.GameSettings.DiamondsEnabled, gs.DiamondsEnabled)
		setBool(&account.GameSettings.RedGuideEnabled, gs.RedGuideEnabled)
		setBool(&account.GameSettings.PinchZoomEnabled, gs.PinchZoomEnabled)
		setBool(&account.GameSettings.DontGoToTopBallInHand, gs.DontGoToTopBallInHand)
		setBool(&account.GameSettings.TapToAimEnabled, gs.TapToAimEnabled)
		setBool(&account.GameSettings.AutoAimEnabled, gs.AutoAimEnabled)
	}
	if st != nil {
		setInt64(&account.Stats.TotalTimePlayed, st.TotalTimePlayed)
		setInt64(&account.Stats.TotalGamesPlayedVsCPU, st.TotalGamesPlayedVsCPU)
		setInt64(&account.Stats.TotalGamesWonVsCPU, st.TotalGamesWonVsCPU)
		setInt64(&account.Stats.TotalGamesPlayedVsHuman, st.TotalGamesPlayedVsHuman)
		setInt64(&account.Stats.TotalGamesWonVsHuman, st.TotalGamesWonVsHuman)
		setInt64(&account.Stats.TotalBallsPocketed, st.TotalBallsPocketed)
		setInt64(&account.Stats.TTBestScore, st.TTBestScore)
		setInt64(&account.Stats.MatrixBestScore, st.MatrixBestScore)
	}
	if mi != nil {
		setInt(&account.Misc.StartupCounter, mi.StartupCounter)
		setBool(&account.Misc.UserSelControlDone, mi.UserSelControlDone)
		setBool(&account.Misc.AdsRemoved, mi.AdsRemoved)
		setBool(&account.Misc.UseAvatarSet2, mi.UseAvatarSet2)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setInt64(dst *int64, v *int64) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

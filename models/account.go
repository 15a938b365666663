package models

// Account is the per-wallet profile document. One row per wallet address,
// created lazily on first login, first save, or first referral touch.
// The nested groups mirror the save format the Unity client sends; GORM
// flattens them into prefixed columns while JSON stays nested.
type Account struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string `gorm:"uniqueIndex;not null" json:"walletAddress"` // lowercase 0x...

	Referral        ReferralState   `gorm:"embedded;embeddedPrefix:referral_" json:"referral"`
	PlayerData      PlayerData      `gorm:"embedded;embeddedPrefix:player_" json:"playerData"`
	ControlSettings ControlSettings `gorm:"embedded;embeddedPrefix:control_" json:"controlSettings"`
	GameSettings    GameSettings    `gorm:"embedded;embeddedPrefix:game_" json:"gameSettings"`
	Stats           GameStats       `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	Misc            MiscSettings    `gorm:"embedded;embeddedPrefix:misc_" json:"misc"`

	Timestamps
}

// ReferralState holds the referral sub-record. Code and ReferredBy are
// pointers so the unique index on code stays sparse (NULLs don't collide)
// and both are set at most once, ever.
type ReferralState struct {
	Code       *string `gorm:"uniqueIndex" json:"referralCode"`
	Count      int64   `gorm:"default:0" json:"referralCount"`
	ReferredBy *string `json:"referredBy"`
}

type PlayerData struct {
	PlayerNames0  string `gorm:"default:''" json:"playerNames0"`
	PlayerNames1  string `gorm:"default:'0g-Panda'" json:"playerNames1"`
	ChosenAvatar0 int    `gorm:"default:0" json:"chosenAvatar0"`
	ChosenAvatar1 int    `gorm:"default:7" json:"chosenAvatar1"`
	SelectedCue0  int    `gorm:"default:1" json:"selectedCue0"`
	SelectedCue1  int    `gorm:"default:1" json:"selectedCue1"`
}

type ControlSettings struct {
	ControlMode0 int `gorm:"default:2" json:"controlMode0"`
	ControlMode1 int `gorm:"default:2" json:"controlMode1"`
	HandMode0    int `gorm:"default:0" json:"handMode0"`
	HandMode1    int `gorm:"default:0" json:"handMode1"`
}

type GameSettings struct {
	SoundEnabled             bool    `gorm:"default:true" json:"soundEnabled"`
	MusicVolVal              float64 `gorm:"default:0.75" json:"musicVolVal"`
	MusicVolMultiplierInGame float64 `gorm:"default:0.5" json:"musicVolMultiplierInGame"`
	SensitivityValue         float64 `gorm:"default:1.0" json:"sensitivityValue"`
	GuideType                int     `gorm:"default:2" json:"guideType"`
	SelectedTable            int     `gorm:"default:0" json:"selectedTable"`
	SelectedPattern          int     `gorm:"default:0" json:"selectedPattern"`
	RoomEnabled              bool    `gorm:"default:true" json:"roomEnabled"`
	DiamondsEnabled          bool    `gorm:"default:false" json:"diamondsEnabled"`
	RedGuideEnabled          bool    `gorm:"default:true" json:"redGuideEnabled"`
	PinchZoomEnabled         bool    `gorm:"default:true" json:"pinchZoomEnabled"`
	DontGoToTopBallInHand    bool    `gorm:"default:true" json:"dontGoToTopBallInHand"`
	TapToAimEnabled          bool    `gorm:"default:true" json:"tapToAimEnabled"`
	AutoAimEnabled           bool    `gorm:"default:true" json:"autoAimEnabled"`
}

// GameStats are the session counters mirrored on-chain. All monotonically
// non-decreasing under normal play.
type GameStats struct {
	TotalTimePlayed         int64 `gorm:"default:0" json:"totalTimePlayed"`
	TotalGamesPlayedVsCPU   int64 `gorm:"default:0" json:"totalGamesPlayedVsCPU"`
	TotalGamesWonVsCPU      int64 `gorm:"default:0" json:"totalGamesWonVsCPU"`
	TotalGamesPlayedVsHuman int64 `gorm:"default:0" json:"totalGamesPlayedVsHuman"`
	TotalGamesWonVsHuman    int64 `gorm:"default:0" json:"totalGamesWonVsHuman"`
	TotalBallsPocketed      int64 `gorm:"default:0;index" json:"totalBallsPocketed"` // leaderboard sort key
	TTBestScore             int64 `gorm:"column:tt_best_score;default:0" json:"ttBestScore"`
	MatrixBestScore         int64 `gorm:"default:0" json:"matrixBestScore"`
}

type MiscSettings struct {
	StartupCounter     int  `gorm:"default:0" json:"startupCounter"`
	UserSelControlDone bool `gorm:"default:false" json:"userSelControlDone"`
	AdsRemoved         bool `gorm:"default:true" json:"adsRemoved"`
	UseAvatarSet2      bool `gorm:"default:true" json:"useAvatarSet2"`
}

// NewAccount returns an Account with client defaults filled in. GORM
// default tags only apply on zero-value inserts, so the constructor sets
// them explicitly to keep sqlite tests and JSON responses honest.
func NewAccount(id, walletAddress string) *Account {
	return &Account{
		ID:            id,
		WalletAddress: walletAddress,
		PlayerData: PlayerData{
			PlayerNames1:  "0g-Panda",
			ChosenAvatar1: 7,
			SelectedCue0:  1,
			SelectedCue1:  1,
		},
		ControlSettings: ControlSettings{
			ControlMode0: 2,
			ControlMode1: 2,
		},
		GameSettings: GameSettings{
			SoundEnabled:             true,
			MusicVolVal:              0.75,
			MusicVolMultiplierInGame: 0.5,
			SensitivityValue:         1.0,
			GuideType:                2,
			RoomEnabled:              true,
			RedGuideEnabled:          true,
			PinchZoomEnabled:         true,
			DontGoToTopBallInHand:    true,
			TapToAimEnabled:          true,
			AutoAimEnabled:           true,
		},
		Misc: MiscSettings{
			AdsRemoved:    true,
			UseAvatarSet2: true,
		},
	}
}

// LeaderboardEntry is the public projection used by GET /api/leaderboard.
type LeaderboardEntry struct {
	Rank               int    `json:"rank"`
	WalletAddress      string `json:"walletAddress"`
	PlayerName         string `json:"playerName"`
	TotalBallsPocketed int64  `json:"totalBallsPocketed"`
	TotalGamesWon      int64  `json:"totalGamesWon"`
}

// LeaderboardData maps an account onto its public leaderboard shape
// (rank is filled in by the projector).
func (a *Account) LeaderboardData() LeaderboardEntry {
	name := a.PlayerData.PlayerNames0
	if name == "" {
		name = "Anonymous"
	}
	return LeaderboardEntry{
		WalletAddress:      a.WalletAddress,
		PlayerName:         name,
		TotalBallsPocketed: a.Stats.TotalBallsPocketed,
		TotalGamesWon:      a.Stats.TotalGamesWonVsCPU + a.Stats.TotalGamesWonVsHuman,
	}
}

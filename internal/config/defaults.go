package config

const (
	defaultAirlockDir             = ".airlock"
	defaultGalleryDir             = "Gallery"
	defaultStateDir               = ".galman"
	defaultViewerBinary           = "mpv"
	defaultViewerStartTimeout     = 10
	defaultSlideshowInterval      = 5
	defaultLogDir                 = "~/.local/share/galman/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
	collectionEnvVar              = "GALMAN_COLLECTION"
	defaultConfigLocation         = "~/.config/galman/config.toml"
	projectConfigFileName         = "galman.toml"
	defaultFollowSymlinks         = true
	defaultViewerMute             = true
	defaultViewerLoopFile         = true
	defaultIgnoreTagsSidecar      = "**/*.tags"
	defaultIgnoreFlashFiles       = "**/*.swf"
	defaultIgnoreMetadataSidecars = "**/*.json"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Collection: Collection{
			AirlockDir: defaultAirlockDir,
			GalleryDir: defaultGalleryDir,
			StateDir:   defaultStateDir,
		},
		Import: Import{
			Ignore: []string{
				defaultIgnoreTagsSidecar,
				defaultIgnoreFlashFiles,
				defaultIgnoreMetadataSidecars,
			},
			FollowSymlinks: defaultFollowSymlinks,
		},
		Viewer: Viewer{
			Binary:                   defaultViewerBinary,
			AcceptKeys:               []string{"4", "a"},
			RejectKeys:               []string{"8", `\`},
			QuitKeys:                 []string{"q"},
			Mute:                     defaultViewerMute,
			LoopFile:                 defaultViewerLoopFile,
			StartTimeoutSeconds:      defaultViewerStartTimeout,
			SlideshowIntervalSeconds: defaultSlideshowInterval,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			Dir:           defaultLogDir,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

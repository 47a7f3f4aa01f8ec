package config

const (
	defaultOutputDir                    = "./generated_data"
	defaultLogDir                       = "~/.local/share/voicecohort/logs"
	defaultLedgerPath                   = "~/.local/share/voicecohort/ledger.db"
	defaultLogFormat                    = "console"
	defaultLogLevel                     = "info"
	defaultSilenceThreshold             = 0.2
	defaultTrimBufferSeconds            = 0.2
	defaultNormalizationFactorThreshold = 50
	defaultMinTrimmedSeconds            = 0.2 * 0.001
	defaultClipLevel                    = 0.98
	defaultClippedRatioThreshold        = 0.15
	defaultClippingMode                 = ClippingModeSamples
	defaultValidationWorkers            = 4
	defaultIDField                      = "_id"
	defaultDiagnosisField               = "formData.covid19.diagnosedCovid19"
	defaultPositiveValue                = "Yes"
	defaultAgeField                     = "formData.age"
	defaultGenderField                  = "formData.gender"
	defaultSmokingField                 = "formData.smokingHabits"
	defaultRecordingsPrefix             = "recordings."
	defaultMinAge                       = 0
	defaultMaxAge                       = 120
	defaultTargetSampleRate             = 16000
	defaultPositiveDir                  = "cov19_positive"
	defaultControlDir                   = "control_group"
	defaultS3Region                     = "us-east-1"
)

// Clipping ratio modes.
const (
	ClippingModeSamples = "samples"
	ClippingModeLegacy  = "legacy"
)

// defaultKeyFields orders matching priority; numeric fields go last.
func defaultKeyFields() []string {
	return []string{defaultGenderField, defaultSmokingField, "formData.country", defaultAgeField}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Validation: Validation{
			SilenceThreshold:             defaultSilenceThreshold,
			TrimBufferSeconds:            defaultTrimBufferSeconds,
			NormalizationFactorThreshold: defaultNormalizationFactorThreshold,
			MinTrimmedSeconds:            defaultMinTrimmedSeconds,
			ClipLevel:                    defaultClipLevel,
			ClippedRatioThreshold:        defaultClippedRatioThreshold,
			ClippingMode:                 defaultClippingMode,
			Workers:                      defaultValidationWorkers,
		},
		Matching: Matching{
			IDField:          defaultIDField,
			DiagnosisField:   defaultDiagnosisField,
			PositiveValue:    defaultPositiveValue,
			KeyFields:        defaultKeyFields(),
			AgeField:         defaultAgeField,
			GenderField:      defaultGenderField,
			SmokingField:     defaultSmokingField,
			RecordingsPrefix: defaultRecordingsPrefix,
			ExcludedGenders:  []string{"Other"},
			SmokingCorrections: map[string]string{
				"I've used to smoke": "I used to smoke",
			},
			MinAge: defaultMinAge,
			MaxAge: defaultMaxAge,
		},
		Export: Export{
			CreateXLSX:       true,
			CreateGroupJSONs: true,
			CopyFiles:        true,
			TargetSampleRate: defaultTargetSampleRate,
			PositiveDir:      defaultPositiveDir,
			ControlDir:       defaultControlDir,
		},
		S3: S3{
			Region: defaultS3Region,
		},
		Ledger: Ledger{
			Enabled: true,
			Path:    defaultLedgerPath,
		},
		Metrics: Metrics{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

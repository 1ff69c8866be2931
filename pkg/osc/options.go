package osc

// OptionNames lists every camera option defined by the OSC reference as of
// January 2021.
var OptionNames = []string{
	"captureMode",
	"captureModeSupport",
	"captureStatus",
	"captureStatusSupport",
	"exposureProgram",
	"exposureProgramSupport",
	"iso",
	"isoSupport",
	"shutterSpeed",
	"shutterSpeedSupport",
	"aperture",
	"apertureSupport",
	"whiteBalance",
	"whiteBalanceSupport",
	"exposureCompensation",
	"exposureCompensationSupport",
	"fileFormat",
	"fileFormatSupport",
	"exposureDelay",
	"exposureDelaySupport",
	"sleepDelay",
	"sleepDelaySupport",
	"offDelay",
	"offDelaySupport",
	"totalSpace",
	"remainingSpace",
	"remainingPictures",
	"gpsInfo",
	"dateTimeZone",
	"hdr",
	"hdrSupport",
	"exposureBracket",
	"exposureBracketSupport",
	"gyro",
	"gyroSupport",
	"gps",
	"gpsSupport",
	"imageStabilization",
	"imageStabilizationSupport",
	"wifiPassword",
	"previewFormat",
	"previewFormatSupport",
	"captureInterval",
	"captureIntervalSupport",
	"captureNumber",
	"captureNumberSupport",
	"remainingVideoSeconds",
	"pollingDelay",
	"delayProcessing",
	"delayProcessingSupport",
	"clientVersion",
	"photoStitchingSupport",
	"photoStitching",
	"videoStitchingSupport",
	"videoStitching",
	"videoGPSSupport",
	"videoGPS",
	"_vendorSpecific",
}

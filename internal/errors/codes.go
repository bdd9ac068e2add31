package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrUnavailable     ErrorCode = "service_unavailable"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrMissingConfig   ErrorCode = "missing_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidWindow   ErrorCode = "invalid_schedule_window"

	// Sensor errors
	ErrSensorInit        ErrorCode = "sensor_init_failed"
	ErrSensorUnreachable ErrorCode = "sensor_unreachable"
	ErrSensorBusy        ErrorCode = "sensor_busy"
	ErrCaptureFailed     ErrorCode = "capture_failed"
	ErrCaptureAborted    ErrorCode = "capture_aborted"
	ErrSetExposure       ErrorCode = "set_exposure_failed"
	ErrSetGain           ErrorCode = "set_gain_failed"

	// Capture loop errors
	ErrCycleFailed    ErrorCode = "capture_cycle_failed"
	ErrSchedulerStart ErrorCode = "scheduler_start_failed"

	// Provider errors
	ErrProviderTimeout     ErrorCode = "provider_timeout"
	ErrProviderUnavailable ErrorCode = "provider_unavailable"

	// Calibration store errors
	ErrStorageInit       ErrorCode = "calibration_storage_init_failed"
	ErrStorageClose      ErrorCode = "calibration_storage_close_failed"
	ErrTransactionFailed ErrorCode = "calibration_transaction_failed"
	ErrSchemaInit        ErrorCode = "calibration_schema_init_failed"
	ErrRecordEncode      ErrorCode = "calibration_record_encode_failed"
	ErrRecordDrop        ErrorCode = "calibration_record_dropped"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"
	ErrShutdownFailed  ErrorCode = "shutdown_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:            "Internal error occurred",
	ErrInvalidArgument:     "Invalid argument provided",
	ErrUnavailable:         "Service unavailable",
	ErrInvalidConfig:       "Invalid configuration",
	ErrMissingConfig:       "Missing configuration",
	ErrReadConfig:          "Failed to read configuration",
	ErrInvalidLogLevel:     "Invalid log level",
	ErrInvalidInterval:     "Invalid interval value",
	ErrInvalidWindow:       "Invalid schedule window",
	ErrSensorInit:          "Failed to initialize sensor",
	ErrSensorUnreachable:   "Sensor unreachable",
	ErrSensorBusy:          "Sensor is busy",
	ErrCaptureFailed:       "Frame capture failed",
	ErrCaptureAborted:      "Exposure aborted",
	ErrSetExposure:         "Failed to set exposure",
	ErrSetGain:             "Failed to set gain",
	ErrCycleFailed:         "Capture cycle failed",
	ErrSchedulerStart:      "Failed to start capture scheduler",
	ErrProviderTimeout:     "Context provider timed out",
	ErrProviderUnavailable: "Context provider unavailable",
	ErrStorageInit:         "Failed to initialize calibration storage",
	ErrStorageClose:        "Failed to close calibration storage",
	ErrTransactionFailed:   "Calibration store transaction failed",
	ErrSchemaInit:          "Failed to initialize calibration schema",
	ErrRecordEncode:        "Failed to encode calibration record",
	ErrRecordDrop:          "Calibration record dropped",
	ErrOperationFailed:     "Operation failed",
	ErrTimeout:             "Operation timed out",
	ErrShutdownFailed:      "Shutdown failed",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}

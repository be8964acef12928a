package utils

import "github.com/mahirjain10/image-handlers/internal/types"

const pattern = "status"

// InitStatusData maps a handler result (and its error, if any) to the
// status payload published for it.
func InitStatusData(result types.Result, err error) *types.StatusData {
	data := &types.StatusData{
		Bucket:  result.Bucket,
		Key:     result.Key,
		Handler: result.Handler,
		Outputs: result.Written,
	}
	switch {
	case err != nil:
		data.Status = types.FAILED
		data.ErrorMsg = err.Error()
	case len(result.Written) == 0:
		data.Status = types.SKIPPED
		data.ErrorMsg = result.Reason
	default:
		data.Status = types.PROCESSED
	}
	return data
}

func InitStatusMessage(data *types.StatusData) *types.StatusMessage {
	return &types.StatusMessage{Pattern: pattern, Data: *data}
}

package types

import "github.com/aws/aws-lambda-go/events"

// UploadNotification is one record of a storage upload notification.
// Key is still URL-escaped, with `+` standing for a space.
type UploadNotification struct {
	Bucket string
	Key    string
}

// NotificationsFromS3Event returns every record of the event, in order.
func NotificationsFromS3Event(event events.S3Event) []UploadNotification {
	out := make([]UploadNotification, 0, len(event.Records))
	for _, record := range event.Records {
		out = append(out, UploadNotification{
			Bucket: record.S3.Bucket.Name,
			Key:    record.S3.Object.Key,
		})
	}
	return out
}

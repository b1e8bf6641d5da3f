package toggl

import "time"

// SetRetryWait shortens the wait between retries.
func (c *Client) SetRetryWait(d time.Duration) {
	c.http.SetRetryWaitTime(d).SetRetryMaxWaitTime(d)
}

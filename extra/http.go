package extra

import (
	"context"
	"io"
	"net/http"
	"os"

	rhttp "github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/d1ced/adbexec"
)

// httpClient is used by PushURL.
// This exist only for easier mocking.
var httpClient = func() *rhttp.Client {
	c := rhttp.NewClient()
	c.Logger = nil
	return c
}()

// PushURL downloads urlStr to a temporary file and pushes it to remote on
// the device.
func PushURL(ctx context.Context, c *adbexec.Client, serial, urlStr, remote string) (string, error) {
	req, err := rhttp.NewRequest(http.MethodGet, urlStr, nil)
	if err != nil {
		return "", err
	}
	res, err := httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return "", errors.Wrapf(err, "http download <%s>", urlStr)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("http download <%s> status %v", urlStr, res.Status)
	}

	tmp, err := os.CreateTemp("", "adbexec-push-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, res.Body); err != nil {
		tmp.Close()
		return "", errors.Wrapf(err, "http download <%s>", urlStr)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return c.Push(ctx, serial, tmp.Name(), remote)
}

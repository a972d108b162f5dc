package faceid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/kozaktomas/face-kiosk/internal/imaging"
)

const defaultEngineURL = "http://localhost:8000"

// ErrNoFace is returned by Embed when the engine finds no usable face.
var ErrNoFace = errors.New("no usable face detected")

// Client talks to the face embedding server. Detection and embedding share
// one endpoint: the server returns every detected face with its embedding,
// and the client decides what "usable" means (exactly one face).
type Client struct {
	baseURL   string
	threshold float64
	client    *http.Client
}

// NewClient creates a face engine client. threshold is the maximum cosine
// distance between two embeddings still considered the same person.
func NewClient(baseURL string, threshold float64) *Client {
	if baseURL == "" {
		baseURL = defaultEngineURL
	}
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		threshold: threshold,
		client:    &http.Client{},
	}
}

// faceDetection represents a single detected face in the engine response.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face embedding endpoint.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint. The part carries an explicit Content-Type
// based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", imaging.DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectFaces runs the engine's face endpoint and returns all detections.
func (c *Client) detectFaces(ctx context.Context, imageData []byte) (*faceResponse, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &faceResp, nil
}

// DetectFace reports whether the image contains exactly one usable face.
// Zero faces and multiple faces both fail detection; the kiosk camera
// frames a single person.
func (c *Client) DetectFace(ctx context.Context, image []byte) (bool, error) {
	resp, err := c.detectFaces(ctx, image)
	if err != nil {
		return false, err
	}
	return resp.FacesCount == 1 && len(resp.Faces) == 1 && len(resp.Faces[0].Embedding) > 0, nil
}

// Embed returns the embedding of the single usable face in the image.
func (c *Client) Embed(ctx context.Context, image []byte) ([]float32, error) {
	resp, err := c.detectFaces(ctx, image)
	if err != nil {
		return nil, err
	}
	if resp.FacesCount != 1 || len(resp.Faces) != 1 || len(resp.Faces[0].Embedding) == 0 {
		return nil, ErrNoFace
	}
	return resp.Faces[0].Embedding, nil
}

// Verify reports whether candidate and reference depict the same person by
// comparing their face embeddings against the distance threshold.
func (c *Client) Verify(ctx context.Context, candidate, reference []byte) (bool, error) {
	candEmb, err := c.Embed(ctx, candidate)
	if err != nil {
		if errors.Is(err, ErrNoFace) {
			return false, nil
		}
		return false, err
	}

	refEmb, err := c.Embed(ctx, reference)
	if err != nil {
		if errors.Is(err, ErrNoFace) {
			return false, nil
		}
		return false, err
	}

	return CosineDistance(candEmb, refEmb) <= c.threshold, nil
}

// VerifyEmbedding compares a candidate image against a stored reference
// embedding, saving the second engine round-trip when the reference
// embedding was cached at registration.
func (c *Client) VerifyEmbedding(ctx context.Context, candidate []byte, reference []float32) (bool, error) {
	if len(reference) == 0 {
		return false, errors.New("empty reference embedding")
	}
	candEmb, err := c.Embed(ctx, candidate)
	if err != nil {
		if errors.Is(err, ErrNoFace) {
			return false, nil
		}
		return false, err
	}
	return CosineDistance(candEmb, reference) <= c.threshold, nil
}

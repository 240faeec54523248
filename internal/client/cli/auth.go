package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

type credentials struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

func (a *App) postAuth(ctx context.Context, path string, c credentials, out any) error {
	body, err := json.Marshal(c)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.config.ServerURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return fmt.Errorf("server rejected request (%d): %s", resp.StatusCode, eb.Error)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (a *App) readCredentials() (credentials, error) {
	name, err := GetSimpleText(a.reader, "Actor name", os.Stdout)
	if err != nil {
		return credentials{}, err
	}
	secret, err := GetPassword(os.Stdout)
	if err != nil {
		return credentials{}, err
	}
	return credentials{Name: name, Secret: string(secret)}, nil
}

func (a *App) register(ctx context.Context) {
	c, err := a.readCredentials()
	if err != nil {
		fmt.Println(err)
		return
	}

	var out struct {
		ActorID string `json:"actor_id"`
	}
	if err := a.postAuth(ctx, "/api/auth/register", c, &out); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("Registered. Now login.")
}

func (a *App) login(ctx context.Context) {
	c, err := a.readCredentials()
	if err != nil {
		fmt.Println(err)
		return
	}

	var out struct {
		ActorID string `json:"actor_id"`
		Token   string `json:"token"`
	}
	if err := a.postAuth(ctx, "/api/auth/login", c, &out); err != nil {
		fmt.Println(err)
		return
	}

	a.initSession(out.ActorID, out.Token)
	fmt.Println("Logged in as", c.Name)
}

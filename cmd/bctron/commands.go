package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	bct "github.com/bctron/bctron/pkg"
)

/*
	These commands are convenience CLI tools that operate on a
	running BCTron by calling its REST APIs.
*/

// PushPosition applies a position through the admin API, exactly as if
// it had arrived from upstream.
func PushPosition(p bct.Position, c bct.Config, remote string) error {
	u, err := apiURL(adminBase(c, remote), "/position")
	if err != nil {
		return err
	}
	var cell bct.Cell
	if err := postJSON(u, p, &cell); err != nil {
		return err
	}
	fmt.Printf("(%d,%d) now held by %q [%s]\n", cell.X, cell.Y, cell.OccupantID, cell.OccupantHash)
	return nil
}

// PrintHistory prints everyone who has held a cell, oldest first.
func PrintHistory(x, y string, c bct.Config, remote string) error {
	u, err := apiURL(publicBase(c, remote), fmt.Sprintf("/cell/%s/%s/history", x, y))
	if err != nil {
		return err
	}
	var history []bct.Cell
	if err := getJSON(u, &history); err != nil {
		return err
	}
	for i, cell := range history {
		marker := " "
		if i == len(history)-1 {
			marker = ">"
		}
		id := cell.OccupantID
		if !cell.Occupied() {
			id = "(empty)"
		}
		fmt.Printf("%s %3d  %-20s %s\n", marker, i, id, cell.OccupantHash)
	}
	return nil
}

func adminBase(c bct.Config, remote string) string {
	if remote != "" {
		return remote
	}
	host := c.WebAPI.AdminBind
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%s/", host, c.WebAPI.AdminPort)
}

func publicBase(c bct.Config, remote string) string {
	if remote != "" {
		return remote
	}
	host := c.WebAPI.Bind
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%s/", host, c.WebAPI.Port)
}

// join base and path and return a complete URL
func apiURL(base string, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	p, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return u.ResolveReference(p).String(), nil
}

func postJSON(url string, body interface{}, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to serialize request body: %v", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %v", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(url string, out interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %v", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

type errorResponse struct {
	Error struct {
		Code    bct.ErrorCode `json:"code"`
		Message string        `json:"message"`
	} `json:"error"`
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error.Code != "" {
			return bct.NewErr(e.Error.Code, "%s", e.Error.Message)
		}
		return fmt.Errorf("unexpected response status code: %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

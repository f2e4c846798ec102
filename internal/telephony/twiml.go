// Package telephony covers the gateway-facing surface: the TwiML instruction
// documents the gateway renders, webhook signature verification, and the REST
// client that places outbound calls.
package telephony

import (
	"encoding/xml"
	"fmt"
)

const (
	voiceName     = "alice"
	voiceLanguage = "en-GB"
)

// Document is one TwiML <Response>. Field order fixes element order on the
// wire: a gather block first, then any terminal play/say, then redirect or
// hangup.
type Document struct {
	XMLName  xml.Name  `xml:"Response"`
	Gather   *Gather   `xml:"Gather,omitempty"`
	Play     *Play     `xml:"Play,omitempty"`
	Say      *Say      `xml:"Say,omitempty"`
	Redirect *Redirect `xml:"Redirect,omitempty"`
	Hangup   *Hangup   `xml:"Hangup,omitempty"`
}

type Gather struct {
	Input         string `xml:"input,attr"`
	Action        string `xml:"action,attr"`
	Method        string `xml:"method,attr"`
	Timeout       int    `xml:"timeout,attr"`
	SpeechTimeout string `xml:"speechTimeout,attr"`
	Language      string `xml:"language,attr"`
	SpeechModel   string `xml:"speechModel,attr"`
	Play          *Play  `xml:"Play,omitempty"`
	Say           *Say   `xml:"Say,omitempty"`
}

type Say struct {
	Voice    string `xml:"voice,attr"`
	Language string `xml:"language,attr"`
	Text     string `xml:",chardata"`
}

type Play struct {
	URL string `xml:",chardata"`
}

type Redirect struct {
	Method string `xml:"method,attr"`
	URL    string `xml:",chardata"`
}

type Hangup struct{}

// GatherSpeech builds a "play or say the message, then listen for speech"
// document. On silence the gateway redirects back to actionURL, which is also
// where collected speech is POSTed.
func GatherSpeech(message, audioURL, actionURL string) *Document {
	g := &Gather{
		Input:         "speech",
		Action:        actionURL,
		Method:        "POST",
		Timeout:       10,
		SpeechTimeout: "auto",
		Language:      voiceLanguage,
		SpeechModel:   "phone_call",
	}
	if audioURL != "" {
		g.Play = &Play{URL: audioURL}
	} else {
		g.Say = &Say{Voice: voiceName, Language: voiceLanguage, Text: message}
	}
	return &Document{
		Gather:   g,
		Redirect: &Redirect{Method: "POST", URL: actionURL},
	}
}

// SayAndHangup builds a terminal "play or say the message, then hang up"
// document.
func SayAndHangup(message, audioURL string) *Document {
	doc := &Document{Hangup: &Hangup{}}
	if audioURL != "" {
		doc.Play = &Play{URL: audioURL}
	} else {
		doc.Say = &Say{Voice: voiceName, Language: voiceLanguage, Text: message}
	}
	return doc
}

// Render serializes the document with the XML declaration the gateway expects.
func (d *Document) Render() (string, error) {
	body, err := xml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to marshal twiml: %w", err)
	}
	return xml.Header + string(body), nil
}

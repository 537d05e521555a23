package main

import (
	"encoding/json"
	"io"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"trench_war_server/logic"
	"trench_war_server/network"
)

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	client := reflector.ReflectFromType(reflect.TypeOf(network.Envelope{}))
	client.Version = ""
	client.Title = "Client message"

	state := reflector.ReflectFromType(reflect.TypeOf(logic.GameState{}))
	state.Version = ""
	state.Title = "Game state snapshot"

	server := make([]*jsonschema.Schema, 0, len(network.ServerMessages()))
	for _, msg := range network.ServerMessages() {
		s := reflector.ReflectFromType(reflect.TypeOf(msg))
		s.Version = ""
		server = append(server, s)
	}

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Trench War wire protocol",
		Description: "One JSON object per websocket text frame.",
		OneOf: []*jsonschema.Schema{
			client,
			{Title: "Server message", OneOf: server},
			state,
		},
	}
}

func writeSchema(w io.Writer) error {
	data, err := json.MarshalIndent(buildSchema(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal schema failed")
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "write schema failed")
	}
	return nil
}

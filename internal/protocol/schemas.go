package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schemas are embedded rather than shipped as files so a worker binary can
// never disagree with its own wire format.

const clientMessageSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type"],
  "oneOf": [
    {
      "properties": {
        "type": {"const": "join"},
        "gameID": {"type": "string", "minLength": 1, "maxLength": 64},
        "token": {"type": "string", "maxLength": 2048},
        "clientID": {"type": "string", "minLength": 1, "maxLength": 64},
        "username": {"type": "string", "maxLength": 64},
        "lastTurn": {"type": "integer", "minimum": 0}
      },
      "required": ["type", "gameID", "clientID"]
    },
    {
      "properties": {
        "type": {"const": "intent"},
        "intent": {"$ref": "#/$defs/intent"}
      },
      "required": ["type", "intent"]
    },
    {
      "properties": {
        "type": {"const": "hash"},
        "turnNumber": {"type": "integer", "minimum": 0},
        "hash": {"type": "string", "minLength": 1, "maxLength": 128}
      },
      "required": ["type", "turnNumber", "hash"]
    },
    {
      "properties": {
        "type": {"const": "winner"},
        "winner": {"type": "string"},
        "allPlayersStats": {"type": "object"}
      },
      "required": ["type"]
    },
    {
      "properties": {"type": {"const": "ping"}},
      "required": ["type"]
    }
  ],
  "$defs": {
    "intent": {
      "type": "object",
      "required": ["kind", "clientID"],
      "properties": {
        "kind": {
          "enum": [
            "spawn", "attack", "build_unit", "donate_gold", "donate_troops",
            "alliance_request", "alliance_reply", "alliance_extension",
            "break_alliance", "embargo", "emoji", "delete_unit",
            "target_player"
          ]
        },
        "clientID": {"type": "string", "minLength": 1, "maxLength": 64},
        "target": {"type": "string", "maxLength": 64},
        "troops": {"type": "integer", "minimum": 0},
        "gold": {"type": "integer", "minimum": 0},
        "x": {"type": "integer", "minimum": 0},
        "y": {"type": "integer", "minimum": 0},
        "unitType": {"type": "string", "maxLength": 32},
        "unitID": {"type": "integer", "minimum": 0},
        "accept": {"type": "boolean"},
        "stop": {"type": "boolean"},
        "emoji": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

const gameConfigSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "gameType": {"enum": ["Singleplayer", "Private", "Public"]},
    "difficulty": {"enum": ["Easy", "Medium", "Hard", "Impossible"]},
    "maxPlayers": {"type": "integer", "minimum": 1, "maximum": 200},
    "bots": {"type": "integer", "minimum": 0, "maximum": 400},
    "mapWidth": {"type": "integer", "minimum": 8, "maximum": 4096},
    "mapHeight": {"type": "integer", "minimum": 8, "maximum": 4096},
    "terrain": {"type": "string", "maxLength": 4194304}
  },
  "required": ["gameType", "difficulty", "maxPlayers", "mapWidth", "mapHeight"]
}`

const gameRecordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["info", "turns"],
  "properties": {
    "info": {
      "type": "object",
      "required": ["gameID", "config", "seed", "players", "startedAt", "endedAt"],
      "properties": {
        "gameID": {"type": "string", "minLength": 1, "maxLength": 64},
        "config": {"type": "object"},
        "seed": {"type": "integer"},
        "players": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["clientID", "playerType"],
            "properties": {
              "clientID": {"type": "string", "minLength": 1, "maxLength": 64},
              "username": {"type": "string", "maxLength": 64},
              "playerType": {"enum": ["Human", "Bot", "FakeHuman"]}
            }
          }
        },
        "startedAt": {"type": "integer", "minimum": 0},
        "endedAt": {"type": "integer", "minimum": 0},
        "winner": {"type": "string"}
      }
    },
    "turns": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["turnNumber", "intents"],
        "properties": {
          "turnNumber": {"type": "integer", "minimum": 0},
          "intents": {"type": "array"},
          "hash": {"type": "string", "maxLength": 128}
        }
      }
    }
  }
}`

var (
	// MustCompileString panics on a malformed schema, which is the behavior
	// we want: a broken embedded schema is a build defect, not a runtime
	// condition.
	ClientMessageSchema = jsonschema.MustCompileString("client_message.schema.json", clientMessageSchema)
	GameConfigSchema    = jsonschema.MustCompileString("game_config.schema.json", gameConfigSchema)
	GameRecordSchema    = jsonschema.MustCompileString("game_record.schema.json", gameRecordSchema)
)

func validateBytes(s *jsonschema.Schema, b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%s: %w", ErrBadMessage, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", ErrBadSchema, err)
	}
	return nil
}

func ValidateClientMessage(b []byte) error { return validateBytes(ClientMessageSchema, b) }
func ValidateGameConfig(b []byte) error    { return validateBytes(GameConfigSchema, b) }
func ValidateGameRecord(b []byte) error    { return validateBytes(GameRecordSchema, b) }

// Package docs is generated by swaggo/swag from the handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/overview": {
            "get": {
                "description": "Returns the latest scheduled pass, or runs a fresh pass for the requested symbols",
                "produces": ["application/json"],
                "tags": ["overview"],
                "summary": "Analyzed market overview",
                "parameters": [
                    {"type": "string", "description": "Comma separated symbols (e.g. BTCUSDT,ETHUSDT)", "name": "symbols", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "500": {"description": "Internal Server Error"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/api/tickers": {
            "get": {
                "description": "Top tickers by 24h quote volume",
                "produces": ["application/json"],
                "tags": ["overview"],
                "summary": "Ticker board",
                "parameters": [
                    {"type": "integer", "default": 20, "description": "Number of tickers (default 20, max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Ticker"}}},
                    "400": {"description": "Bad Request"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/api/assets/{symbol}/chart": {
            "get": {
                "description": "PNG chart with Bollinger bands and an auxiliary panel",
                "produces": ["image/png"],
                "tags": ["overview"],
                "summary": "Candlestick chart",
                "parameters": [
                    {"type": "string", "description": "Asset symbol", "name": "symbol", "in": "path", "required": true},
                    {"type": "string", "description": "Candle timeframe (15m, 1h, 4h, 1d)", "name": "timeframe", "in": "query"},
                    {"type": "string", "description": "Auxiliary panel (volume, rsi, macd)", "name": "panel", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "422": {"description": "Unprocessable Entity"},
                    "502": {"description": "Bad Gateway"}
                }
            }
        },
        "/api/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["stats"],
                "summary": "Prediction accuracy and token usage",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/api/stats/reset": {
            "post": {
                "produces": ["application/json"],
                "tags": ["stats"],
                "summary": "Reset prediction stats",
                "responses": {
                    "200": {"description": "OK"},
                    "500": {"description": "Internal Server Error"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/api/backtest/{symbol}": {
            "get": {
                "description": "Replays history through the analyst, long-only, and reports equity and trades",
                "produces": ["application/json"],
                "tags": ["backtest"],
                "summary": "Backtest the AI strategy",
                "parameters": [
                    {"type": "string", "description": "Asset symbol", "name": "symbol", "in": "path", "required": true},
                    {"type": "integer", "default": 7, "description": "History window in days (1-90)", "name": "days", "in": "query"},
                    {"type": "integer", "default": 4, "description": "Candles between decisions (1-48)", "name": "step", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        }
    },
    "definitions": {
        "domain.Ticker": {
            "type": "object",
            "properties": {
                "symbol": {"type": "string"},
                "last_price": {"type": "number"},
                "change_24h": {"type": "number", "x-nullable": true},
                "volume_24h": {"type": "number", "x-nullable": true}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Market Pulse API",
	Description:      "Multi-timeframe market overview with AI trading signals.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// WebSocketHandler upgrades the request and hands the connection to the relay.
// It validates that the request uses the GET method, upgrades the HTTP
// connection, and admits the new Client. Once shutdown has begun the upgraded
// connection is closed straight away.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		loggerFrom(r.Context(), s.log).Info("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, s.relay, s.cfg, s.log)
	if !s.admit(client) {
		loggerFrom(r.Context(), s.log).Info("Rejecting connection during shutdown")
		_ = client.Close()
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// HealthHandler reports that the server is up and how many clients are
// connected.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := healthResponse{Status: "ok", Connections: s.relay.Registry().Len()}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		loggerFrom(r.Context(), s.log).Warn("Error writing health response", zap.Error(err))
	}
}

// TestPageHandler serves an HTML page for trying the relay from a browser:
// pick a username, connect, and watch envelopes arrive.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, testPageHTML)
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Broadcast Relay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages { 
            border: 1px solid #ccc; 
            height: 300px; 
            padding: 10px; 
            overflow-y: scroll; 
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { 
            width: 300px; 
            padding: 5px; 
            margin-right: 10px;
        }
        button { 
            padding: 5px 15px; 
            background-color: #007cba; 
            color: white; 
            border: none; 
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status { 
            margin: 10px 0; 
            padding: 5px; 
            border-radius: 3px;
        }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Broadcast Relay Test</h1>
    
    <div id="status" class="status disconnected">Disconnected</div>
    
    <div>
        <input type="text" id="usernameInput" placeholder="Username">
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    
    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const usernameInput = document.getElementById('usernameInput');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addEnvelope(envelope) {
            const messageElement = document.createElement('div');
            messageElement.style.margin = '5px 0';
            messageElement.style.padding = '3px';

            const time = document.createElement('small');
            time.textContent = ' ' + envelope.timestamp;

            if (envelope.type === 'system') {
                messageElement.style.color = 'gray';
                const text = document.createElement('em');
                text.textContent = envelope.message;
                messageElement.appendChild(text);
            } else {
                messageElement.style.color = 'green';
                const name = document.createElement('strong');
                name.textContent = envelope.username + ': ';
                messageElement.appendChild(name);
                messageElement.appendChild(document.createTextNode(envelope.message));
            }
            messageElement.appendChild(time);

            messagesDiv.appendChild(messageElement);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            if (connected) {
                statusDiv.textContent = 'Connected';
                statusDiv.className = 'status connected';
                messageInput.disabled = false;
                sendButton.disabled = false;
                connectButton.textContent = 'Disconnect';
            } else {
                statusDiv.textContent = 'Disconnected';
                statusDiv.className = 'status disconnected';
                messageInput.disabled = true;
                sendButton.disabled = true;
                connectButton.textContent = 'Connect';
            }
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');

            ws.onopen = function() {
                updateStatus(true);
            };

            ws.onmessage = function(event) {
                addEnvelope(JSON.parse(event.data));
            };

            ws.onclose = function() {
                updateStatus(false);
                ws = null;
            };

            ws.onerror = function() {
                updateStatus(false);
            };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function sendMessage() {
            const message = messageInput.value;
            if (message.trim() && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({ username: usernameInput.value, message: message }));
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`

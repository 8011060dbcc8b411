package oracle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vikashloomba/mcp-query-router/internal/json"
	"github.com/vikashloomba/mcp-query-router/pkg/catalog"
)

const (
	maxTokensPickServer  = 100
	maxTokensPickPrompt  = 50
	maxTokensPromptArgs  = 100
	maxTokensToolArgs    = 100
	maxTokensPickToolArg = 200
)

const pickServerDirective = "You are an AI assistant that helps select the appropriate MCP server based on the user's query. " +
	"I will provide a list of available MCP servers with their capabilities (tools, resources, prompts), " +
	"latency (in milliseconds), and current load (as a percentage). " +
	"Based on the user's query, determine which server is best suited to handle the task. " +
	"Prioritize servers with lower latency and lower load, but ensure the server has the required tools, resources, or prompts. " +
	"Return the name of the server or 'None' if no server is suitable."

const pickPromptDirective = "You are an AI assistant that helps select the most appropriate prompt template based on the user's query. " +
	"I will provide a list of available prompt templates with their descriptions and arguments. " +
	"Based on the user's query, select the prompt that best matches the intent of the query. " +
	"Return the name of the selected prompt or 'None' if no prompt is suitable."

const jsonOnly = "Ensure the response is a pure JSON string and do not wrap it in Markdown code blocks (e.g., ```json ... ```). " +
	"Do not include any additional text outside the JSON string."

const promptArgsDirective = "You are an AI assistant that extracts parameters from a user's query based on the required arguments of a prompt template. " +
	"I will provide the user's query and the list of arguments that need to be extracted. " +
	"Extract the values for each argument from the query and return them as a JSON object. " +
	"If an argument cannot be extracted, return an empty string for that argument. " + jsonOnly

const toolArgsDirective = "You are an AI assistant that extracts parameters from a user's query based on the input schema of a tool. " +
	"I will provide the user's query and the tool's input schema, including the properties and required fields. " +
	"Extract the values for each property from the query and return them as a JSON object. " +
	"If a property cannot be extracted, return an empty string for that property. " + jsonOnly

func pickToolDirective(tools []catalog.ToolSpec) string {
	listing, err := json.MarshalIndent(tools, "", "  ")
	if err != nil {
		listing = []byte("[]")
	}
	return "You are an AI assistant that can use tools to complete tasks. " +
		"Based on the user's query and the available tools, decide which tool to use and what arguments to provide. " +
		"The available tools are:\n" + string(listing) + "\n" +
		"Return your response as a pure JSON string with the following structure:\n" +
		"{\"tool_name\": \"<tool_name>\", \"arguments\": {<key>: <value>, ...}}\n" + jsonOnly
}

func pickServerMessage(query string, servers map[string]catalog.ServerInfo) string {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Available MCP servers and their details:\n")
	for _, name := range names {
		info := servers[name]
		tools := make([]string, 0, len(info.Tools))
		for _, t := range info.Tools {
			tools = append(tools, t.Name)
		}
		resources := make([]string, 0, len(info.Resources))
		for _, r := range info.Resources {
			resources = append(resources, r.URI)
		}
		prompts := make([]string, 0, len(info.Prompts))
		for _, p := range info.Prompts {
			prompts = append(prompts, p.Name)
		}
		fmt.Fprintf(&sb, "Server: %s\nTools: %s\nResources: %s\nPrompts: %s\nLatency: %.2fms\nLoad: %.2f%%\n\n",
			name, listNames(tools), listNames(resources), listNames(prompts), info.LatencyMs, info.Load)
	}
	fmt.Fprintf(&sb, "User query: %s\nWhich server should be used to handle this query?", query)
	return sb.String()
}

func pickPromptMessage(prompts []catalog.PromptSpec, query string) string {
	var sb strings.Builder
	sb.WriteString("Available prompt templates:\n")
	for _, p := range prompts {
		args, err := json.Marshal(p.Arguments)
		if err != nil || p.Arguments == nil {
			args = []byte("[]")
		}
		fmt.Fprintf(&sb, "Prompt: %s\nDescription: %s\nArguments: %s\n\n", p.Name, p.Description, args)
	}
	fmt.Fprintf(&sb, "User query: %s\nWhich prompt template should be used to handle this query?", query)
	return sb.String()
}

func promptArgsMessage(args []catalog.PromptArgument, query string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User query: %s\nArguments to extract:\n", query)
	for _, arg := range args {
		fmt.Fprintf(&sb, "Name: %s, Description: %s, Required: %t\n", arg.Name, arg.Description, arg.Required)
	}
	sb.WriteString("\nExtract the values for these arguments.")
	return sb.String()
}

func toolArgsMessage(tool catalog.ToolSpec, query string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User query: %s\nTool input schema:\n", query)
	props := tool.Properties()
	for _, name := range tool.PropertyNames() {
		desc := "N/A"
		if p := props[name]; p != nil && p.Description != "" {
			desc = p.Description
		}
		typ := tool.PropertyType(name)
		if typ == "" {
			typ = "N/A"
		}
		fmt.Fprintf(&sb, "Property: %s, Description: %s, Type: %s\n", name, desc, typ)
	}
	fmt.Fprintf(&sb, "Required properties: %s\n", listNames(tool.Required()))
	sb.WriteString("\nExtract the values for these properties.")
	return sb.String()
}

func listNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

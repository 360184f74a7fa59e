package main

import (
	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"debugbar/internal/api"
	"debugbar/internal/middleware"
)

type demoLink struct {
	href, label string
}

var demoLinks = []demoLink{
	{"/users", "List users (one query, a measure and a log message)"},
	{"/users/1", "Show one user (bound query)"},
	{"/users/999", "Missing user (warning message)"},
	{"/fail", "Failing statement (query error and exception)"},
	{"/panic", "Panicking handler (recorded panic)"},
}

func indexPage() Node {
	return Doctype(HTML(Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			TitleEl(Text("debugbar demo")),
		),
		Body(
			H1(Text("debugbar demo")),
			P(Text("Every response carries its dataset id in the "),
				Code(Text(middleware.DebugbarIDHeader)), Text(" header.")),
			Ul(Map(demoLinks, func(l demoLink) Node {
				return Li(A(Href(l.href), Text(l.label)))
			})),
			P(Text("Fetch a dataset from "), Code(Text(api.OpenPath+"?op=get&id=<id>")),
				Text(" or with "), Code(Text("debugbar get <id>")), Text(".")),
		),
	))
}

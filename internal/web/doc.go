// Package web serves huddle's page routes and JSON API.
//
// Page routes reproduce the app's redirect rules:
//
//	/                                  no session → sign-in; member of a server → /servers/{id}; else setup view
//	/servers/:serverId                 no profile → sign-in; not a member → /; else → general channel
//	/servers/:serverId/channels/:id    same guards; unknown channel → /servers/{id}
//	/invite/:inviteCode                joins the server as GUEST, then → /servers/{id}
//
// Pages render JSON view models; presentation is left to the client.
package web

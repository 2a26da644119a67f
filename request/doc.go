// Package request holds the protocol-agnostic description of an outgoing
// call: method, URL template and parameters, headers, body and per-request
// options. The httpclient adapter turns an Information into a net/http
// request.
//
// Basic usage:
//
//	info := request.NewInformationWithMethodAndURLTemplateAndPathParameters(
//	    request.GET, "{+baseurl}/users/{id}{?%24top}", map[string]string{"id": "42"})
//	info.QueryParametersAny["%24top"] = 10
//	info.Headers.TryAdd("Accept", "application/json")
package request

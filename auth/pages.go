package auth

import (
	"html/template"
)

var successPage = template.Must(template.New("success").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Signed in</title></head>
<body>
<h1>Authentication successful! You can close this window.</h1>
{{if .Email}}<p>Logged in as {{.Email}}</p>{{end}}
<p><a href="{{.Origin}}/">Back to the site</a></p>
</body>
</html>
`))

// fragmentPage hands the implicit-flow fragment to the server, which verifies it before setting cookies
var fragmentPage = template.Must(template.New("fragment").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Signing in</title></head>
<body>
<h1 id="status">Signing in...</h1>
<script>
(function () {
  var status = document.getElementById("status");
  var fragment = window.location.hash.substring(1);
  if (!fragment) {
    window.location.replace({{.FailureURL}});
    return;
  }
  fetch(window.location.pathname, {
    method: "POST",
    credentials: "same-origin",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify({ fragment: fragment })
  }).then(function (res) {
    if (!res.ok) { throw new Error("HTTP " + res.status); }
    history.replaceState(null, "", window.location.pathname);
    status.textContent = "Authentication successful! You can close this window.";
    window.close();
  }).catch(function () {
    window.location.replace({{.FailureURL}});
  });
})();
</script>
</body>
</html>
`))

type successData struct {
	Email  string
	Origin string
}

type fragmentData struct {
	FailureURL string
}

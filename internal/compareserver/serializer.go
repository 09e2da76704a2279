package compareserver

// serializerSource is the injectable DOM serializer shipped to clients via
// GET /domserializer. The production comparison service serves a richer
// implementation; this one covers local development and client tests while
// honoring the same contract: define window.SmartUIDOM.serialize returning
// the serialized DOM.
const serializerSource = `
(function () {
  if (typeof window === 'undefined') { return; }
  window.SmartUIDOM = window.SmartUIDOM || {};
  window.SmartUIDOM.serialize = function () {
    var doctype = '';
    if (document.doctype) {
      doctype = '<!DOCTYPE ' + document.doctype.name + '>';
    }
    return doctype + document.documentElement.outerHTML;
  };
})();
`
